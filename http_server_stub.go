// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !http

package main

import "context"

var useHTTP = false

func (f *firmware) httpServer(context.Context) error { return nil }

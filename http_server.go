// Copyright ©2024 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build http

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/soypat/seqs/stacks"

	"github.com/kortschak/tone/control"
	"github.com/kortschak/tone/wifi"
)

var useHTTP = true

// httpServer serves read-only diagnostics. It does not touch any
// peripheral owned by the control loop.
func (f *firmware) httpServer(ctx context.Context) error {
	stack, err := wifi.SetupWithDHCP(f.dev, wifi.SetupConfig{
		Hostname: "tone",
		TCPPorts: 1,
	}, f.log)
	if err != nil {
		return fmt.Errorf("failed to set up dhcp: %w", err)
	}

	const tcpBufLen = 2048 // Half a page each direction.
	ln, err := stacks.NewTCPListener(stack, stacks.TCPListenerConfig{
		MaxConnections: 2,
		ConnTxBufSize:  tcpBufLen,
		ConnRxBufSize:  tcpBufLen,
	})
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	const port = 80
	err = ln.StartListening(port)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	addr := netip.AddrPortFrom(stack.Addr(), port)
	f.log.LogAttrs(ctx, slog.LevelInfo, "listening", slog.String("addr", "http://"+addr.String()))
	mux := http.NewServeMux()
	mux.Handle("/state/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.log.LogAttrs(ctx, slog.LevelInfo, "state report request")
		w.Header().Set("Connection", "close")
		s := f.state.Load().(control.State)
		armed, at, deadline := s.Button.Armed()
		fmt.Fprintf(w, "iteration=%d clock=%d freq=%s octave=%d sample=%d button=%s count=%d loops=%d armed=%t armed_at=%d deadline=%d halted=%t\n",
			s.Iteration, s.Now, s.Prev, s.Octave, s.Sample,
			s.Button.State(), s.Button.Count(), s.Button.Loops(),
			armed, at, deadline, s.Halted,
		)
	}))
	mux.Handle("/log/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.log.LogAttrs(ctx, slog.LevelInfo, "get log")
		w.Header().Set("Connection", "Keep-Alive")
		w.Header().Set("Transfer-Encoding", "chunked")
		f.sw.use(w)
		defer f.sw.close()
		time.Sleep(10 * time.Minute)
	}))
	return http.Serve(ln, mux)
}

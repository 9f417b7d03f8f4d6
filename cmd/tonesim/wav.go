// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth  = 16
	amplitude = 1 << 13
	pcmFormat = 1
)

// wavWriter renders a square wave of varying frequency into a mono WAV
// stream.
type wavWriter struct {
	enc   *wav.Encoder
	rate  int
	phase float64 // In cycles, [0, 1).
	buf   audio.IntBuffer
}

func newWavWriter(w io.WriteSeeker, rate int) *wavWriter {
	return &wavWriter{
		enc:  wav.NewEncoder(w, rate, bitDepth, 1, pcmFormat),
		rate: rate,
		buf: audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
			SourceBitDepth: bitDepth,
		},
	}
}

// render appends d of a square wave at hz. A zero frequency renders
// silence. The wave's phase is continuous across calls.
func (w *wavWriter) render(hz float64, d time.Duration) error {
	n := int(d.Seconds() * float64(w.rate))
	data := w.buf.Data[:0]
	step := hz / float64(w.rate)
	for range n {
		v := 0
		if hz > 0 {
			if w.phase < 0.5 {
				v = amplitude
			} else {
				v = -amplitude
			}
			w.phase += step
			w.phase -= float64(int(w.phase))
		}
		data = append(data, v)
	}
	w.buf.Data = data
	return w.enc.Write(&w.buf)
}

// Close finalises the WAV headers.
func (w *wavWriter) Close() error {
	return w.enc.Close()
}

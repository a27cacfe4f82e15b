// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	cases := []struct {
		raw  string
		want Command
		ok   bool
	}{
		{":capture=1;", Command{Name: "capture", Value: "1"}, true},
		{":capture=0;", Command{Name: "capture", Value: "0"}, true},
		{":reload;", Command{Name: "reload"}, true},
		{":;", Command{}, false},
		{"", Command{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := parseFrame(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestApplyCapture(t *testing.T) {
	start, ok := ApplyCapture(Command{Name: "capture", Value: "1"})
	assert.True(t, ok)
	assert.True(t, start)

	start, ok = ApplyCapture(Command{Name: "capture", Value: "0"})
	assert.True(t, ok)
	assert.False(t, start)

	_, ok = ApplyCapture(Command{Name: "capture", Value: "garbage"})
	assert.False(t, ok)

	_, ok = ApplyCapture(Command{Name: "other"})
	assert.False(t, ok)
}

func TestSocket_BannerAndDrain(t *testing.T) {
	name := "mangohud-test-" + t.Name()
	s, err := NewSocket(name, "AMD Radeon RX 7900 XTX")
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)

	conn, err := net.Dial("unix", abstractAddr(name))
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)
	banner := make([]byte, len(":DeviceName=AMD Radeon RX 7900 XTX;:MesaOverlayControlVersion=1;"))
	_, err = readFull(reader, banner)
	require.NoError(t, err)
	assert.Equal(t, ":DeviceName=AMD Radeon RX 7900 XTX;:MesaOverlayControlVersion=1;", string(banner))

	_, err = conn.Write([]byte(":capture=1;"))
	require.NoError(t, err)

	var drained []Command
	require.Eventually(t, func() bool {
		drained = append(drained, s.Drain()...)
		return len(drained) > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, drained, 1)
	assert.Equal(t, Command{Name: "capture", Value: "1"}, drained[0])
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

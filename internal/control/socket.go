// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	xglog "github.com/mangohud/overlayd/internal/log"
	"github.com/mangohud/overlayd/internal/metrics"
)

// Command is one parsed `:cmd[=value];` control-socket frame.
type Command struct {
	Name  string
	Value string
}

// Socket is the abstract Unix control socket spec.md §4.7 describes.
// Connections are handled on background goroutines that parse frames into
// Commands and push them onto an internal queue; Drain is the
// non-blocking "read until EAGAIN" analog, called once per present so
// commands take effect on the next present rather than mid-frame.
type Socket struct {
	ln     net.Listener
	device string

	mu       sync.Mutex
	queue    []Command
	queueCap int
}

// abstractAddr prepends the Linux abstract-namespace marker Go's net
// package expects ("@name" maps to a leading NUL byte on the wire),
// matching spec.md's "abstract Unix socket" requirement.
func abstractAddr(name string) string {
	return "@" + strings.TrimPrefix(name, "@")
}

// NewSocket binds an abstract Unix socket named name and returns a Socket
// ready to Serve. device is the string emitted as the connection banner's
// DeviceName field.
func NewSocket(name, device string) (*Socket, error) {
	ln, err := net.Listen("unix", abstractAddr(name))
	if err != nil {
		return nil, fmt.Errorf("control: listen on abstract socket %q: %w", name, err)
	}
	return &Socket{ln: ln, device: device, queueCap: 256}, nil
}

// Serve accepts connections until ctx is canceled or the listener is
// closed. Each connection is handled on its own goroutine.
func (s *Socket) Serve(ctx context.Context) {
	logger := xglog.WithComponent("control_socket")
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("control socket accept failed")
			return
		}
		go s.handleConn(conn)
	}
}

// Close closes the underlying listener.
func (s *Socket) Close() error {
	return s.ln.Close()
}

func (s *Socket) handleConn(conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.New()
	logger := xglog.WithComponent("control_socket").With().Str("session_id", sessionID.String()).Logger()

	banner := fmt.Sprintf(":DeviceName=%s;:MesaOverlayControlVersion=1;", s.device)
	if _, err := conn.Write([]byte(banner)); err != nil {
		logger.Debug().Err(err).Msg("failed writing connection banner")
		return
	}

	reader := bufio.NewReader(conn)
	for {
		raw, err := reader.ReadString(';')
		if err != nil {
			return
		}
		cmd, ok := parseFrame(raw)
		if !ok {
			continue
		}
		logger.Debug().Str("command", cmd.Name).Str("value", cmd.Value).Msg("control command received")
		s.enqueue(cmd)
	}
}

// parseFrame strips the leading ':' and trailing ';' off one control-socket
// frame and splits it into a command name and optional value.
func parseFrame(raw string) (Command, bool) {
	raw = strings.TrimSuffix(raw, ";")
	raw = strings.TrimPrefix(raw, ":")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Command{}, false
	}
	if idx := strings.IndexByte(raw, '='); idx >= 0 {
		return Command{Name: raw[:idx], Value: raw[idx+1:]}, true
	}
	return Command{Name: raw}, true
}

func (s *Socket) enqueue(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) >= s.queueCap {
		metrics.IncControlCommand(cmd.Name, "dropped_queue_full")
		return
	}
	s.queue = append(s.queue, cmd)
}

// Drain returns every Command queued since the last Drain call and empties
// the queue, the Go analog of draining a non-blocking socket until EAGAIN.
// Intended to be called once per present.
func (s *Socket) Drain() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	cmds := s.queue
	s.queue = nil
	return cmds
}

// ApplyCapture interprets a "capture" command's value, reporting whether it
// requests capture to start (true) or stop (false), and whether the value
// was recognized at all.
func ApplyCapture(cmd Command) (start bool, ok bool) {
	if cmd.Name != "capture" {
		return false, false
	}
	switch cmd.Value {
	case "1":
		return true, true
	case "0":
		return false, true
	default:
		return false, false
	}
}

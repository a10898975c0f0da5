// Package ipc is the control socket of the running daemon.
//
// Protocol: line-delimited JSON over a unix domain socket.
//   - Client sends: {"type": "toggle"}
//   - Server responds: {"status": "ok", "data": {...}} or {"status": "error", "error": "msg"}
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	TypeToggle = "toggle"
	TypeReload = "reload"
	TypeStatus = "status"

	StatusOK    = "ok"
	StatusError = "error"

	clientTimeout = 10 * time.Second
	staleTimeout  = 500 * time.Millisecond
)

var (
	ErrUnknownRequest = errors.New("unknown request type")
	// ErrNotRunning means no daemon is listening on the socket.
	ErrNotRunning = errors.New("daemon not running")
	// ErrAlreadyRunning means another daemon answers on the socket.
	ErrAlreadyRunning = errors.New("daemon already running")
)

type Request struct {
	Type string `json:"type"`
}

type Response struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Handler answers one request. The returned value, if any, is encoded into
// Response.Data.
type Handler func(ctx context.Context, req Request) (any, error)

// Serve listens on socketPath until ctx is canceled. A stale socket file is
// replaced; a socket some other daemon still answers on is left alone.
func Serve(ctx context.Context, socketPath string, handler Handler, logger zerolog.Logger) error {
	if err := clearStaleSocket(socketPath); err != nil {
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// Only the owning user may drive the daemon.
	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info().Str("socket", socketPath).Msg("IPC listening")

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug().Msg("IPC listener closed")
				return nil
			}

			logger.Error().Err(err).Msg("IPC accept error")
			continue
		}

		go handleConn(ctx, conn, handler, logger)
	}
}

func clearStaleSocket(socketPath string) error {
	conn, err := net.DialTimeout("unix", socketPath, staleTimeout)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s is in use", ErrAlreadyRunning, socketPath)
	}

	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	return nil
}

func handleConn(ctx context.Context, conn net.Conn, handler Handler, logger zerolog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug().Str("line", line).Msg("IPC received")

		if err := encoder.Encode(dispatch(ctx, line, handler)); err != nil {
			logger.Error().Err(err).Msg("IPC failed to send response")
			return
		}
	}
}

func dispatch(ctx context.Context, line string, handler Handler) Response {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return errorResponse(fmt.Errorf("parse request: %w", err))
	}

	switch req.Type {
	case TypeToggle, TypeReload, TypeStatus:
	default:
		return errorResponse(fmt.Errorf("%w: %q", ErrUnknownRequest, req.Type))
	}

	result, err := handler(ctx, req)
	if err != nil {
		return errorResponse(err)
	}

	resp := Response{Status: StatusOK}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errorResponse(fmt.Errorf("encode result: %w", err))
		}
		resp.Data = data
	}

	return resp
}

func errorResponse(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// Send issues one request to the daemon at socketPath. When out is non-nil
// the response data is decoded into it.
func Send(ctx context.Context, socketPath, reqType string, out any) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("%w: connect to %s: %w", ErrNotRunning, socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(clientTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	data, err := json.Marshal(Request{Type: reqType})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != StatusOK {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}

	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

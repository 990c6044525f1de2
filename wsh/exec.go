package wsh

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// ExecOptions configures the one-shot Exec helper.
type ExecOptions struct {
	URL         string
	Username    string
	Credentials Credentials
	Command     string
	Env         map[string]string
	Deadline    time.Duration
}

// ExecResult is the outcome of a one-shot Exec call.
type ExecResult struct {
	Stdout   []byte
	ExitCode int32
}

// Exec connects, runs command to completion on a fresh exec channel,
// collects all output, and disconnects -- the static one-shot helper for
// callers that don't need an interactive Client.
func Exec(ctx context.Context, opts ExecOptions) (ExecResult, error) {
	if opts.Deadline == 0 {
		opts.Deadline = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Deadline)
	defer cancel()

	c := NewClient()
	if err := c.Connect(ctx, ConnectOptions{
		URL:         opts.URL,
		Username:    opts.Username,
		Credentials: opts.Credentials,
	}); err != nil {
		return ExecResult{}, err
	}
	defer c.Disconnect()

	var buf bytes.Buffer
	var mu sync.Mutex
	done := make(chan struct{})
	var closeOnce sync.Once
	var exitCode int32

	s, err := c.OpenExec(ctx, OpenOptions{
		Command: opts.Command,
		Env:     opts.Env,
		OnData: func(p []byte) {
			mu.Lock()
			buf.Write(p)
			mu.Unlock()
		},
		OnExit: func(code int32) {
			exitCode = code
			closeOnce.Do(func() { close(done) })
		},
		OnClose: func() {
			closeOnce.Do(func() { close(done) })
		},
	})
	if err != nil {
		return ExecResult{}, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = s.Close()
		return ExecResult{}, ctx.Err()
	}

	mu.Lock()
	out := append([]byte(nil), buf.Bytes()...)
	mu.Unlock()
	return ExecResult{Stdout: out, ExitCode: exitCode}, nil
}

package testutil

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
)

// Handler answers one decoded request. A nil reply sends nothing back.
type Handler func(request map[string]any) []byte

// FakeImplementation serves handler over in-memory pipes. Pass Stdout and
// Stdin to runner.New. Requests are recorded in order.
type FakeImplementation struct {
	Stdout io.Reader
	Stdin  io.Writer

	requests chan map[string]any
	stdoutW  *io.PipeWriter
	stdinR   *io.PipeReader
}

// NewFakeImplementation starts serving handler until the test ends or
// Hangup is called.
func NewFakeImplementation(t *testing.T, handler Handler) *FakeImplementation {
	t.Helper()

	stdoutR, stdoutW := io.Pipe()
	stdinR, stdinW := io.Pipe()

	f := &FakeImplementation{
		Stdout:   stdoutR,
		Stdin:    stdinW,
		requests: make(chan map[string]any, 64),
		stdoutW:  stdoutW,
		stdinR:   stdinR,
	}

	go func() {
		scanner := bufio.NewScanner(stdinR)
		for scanner.Scan() {
			var request map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &request); err != nil {
				stdoutW.CloseWithError(err)
				return
			}
			f.requests <- request
			if reply := handler(request); reply != nil {
				if _, err := stdoutW.Write(append(reply, '\n')); err != nil {
					return
				}
			}
		}
	}()

	t.Cleanup(f.Hangup)
	return f
}

// Hangup closes both pipes, as if the process died.
func (f *FakeImplementation) Hangup() {
	f.stdoutW.Close()
	f.stdinR.Close()
}

// CloseOutput closes only the implementation's stdout.
func (f *FakeImplementation) CloseOutput() {
	f.stdoutW.Close()
}

// Requests returns the requests received so far.
func (f *FakeImplementation) Requests() []map[string]any {
	var out []map[string]any
	for {
		select {
		case r := <-f.requests:
			out = append(out, r)
		default:
			return out
		}
	}
}

// Reply returns a Handler answering each command name with a fixed reply.
// Commands without an entry get no reply.
func Reply(replies map[string]string) Handler {
	return func(request map[string]any) []byte {
		cmd, _ := request["cmd"].(string)
		reply, ok := replies[cmd]
		if !ok {
			return nil
		}
		return []byte(reply)
	}
}

// Package runner drives a single implementation under test over the ihop
// protocol: one JSON request per line on its stdin, one JSON response per
// line on its stdout.
//
// Protocol failures while running a case never escape as errors. A missing
// response becomes outcome.Empty; anything else that goes wrong locally
// becomes an uncaught outcome.CaseErrored.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/roach88/ihop/internal/outcome"
	"github.com/roach88/ihop/internal/protocol"
	"github.com/roach88/ihop/internal/testcase"
)

var (
	// ErrNoResponse indicates the implementation did not answer: it closed
	// its output, timed out, or the context ended first.
	ErrNoResponse = errors.New("no response from implementation")

	// ErrDialectRejected indicates the implementation declined a dialect.
	ErrDialectRejected = errors.New("implementation rejected dialect")
)

// DefaultTimeout bounds how long a single response may take.
const DefaultTimeout = 30 * time.Second

// maxLine bounds a single response line.
const maxLine = 64 * 1024 * 1024

// Option configures an Implementation.
type Option func(*Implementation)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Implementation) { i.logger = logger }
}

// WithTimeout sets the per-response timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(i *Implementation) { i.timeout = timeout }
}

type line struct {
	data []byte
	err  error
}

// Implementation is one implementation under test reachable over a pair
// of byte streams. Exchanges are serialized; it is safe for concurrent use.
type Implementation struct {
	name    string
	codec   *protocol.Codec
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	w      io.Writer
	lines  chan line
	done   chan struct{}
	silent bool // set once an exchange went unanswered; nothing more is sent

	closeOnce sync.Once
	closer    func() error
	stderr    *tailBuffer
}

// New wraps an already running implementation reading requests from w and
// writing responses to r.
func New(name string, r io.Reader, w io.Writer, codec *protocol.Codec, opts ...Option) *Implementation {
	i := &Implementation{
		name:    name,
		codec:   codec,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: DefaultTimeout,
		w:       w,
		lines:   make(chan line),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	go i.scan(r)
	return i
}

// Name identifies the implementation in outcomes.
func (i *Implementation) Name() string { return i.name }

func (i *Implementation) scan(r io.Reader) {
	defer close(i.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		select {
		case i.lines <- line{data: bytes.Clone(scanner.Bytes())}:
		case <-i.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case i.lines <- line{err: err}:
	case <-i.done:
	}
}

// Start performs the start handshake. The returned Started is always ready
// and speaks protocol.ProtocolVersion.
func (i *Implementation) Start(ctx context.Context) (protocol.Started, error) {
	started, err := exchange(ctx, i, protocol.StartV1)
	if err != nil {
		return protocol.Started{}, fmt.Errorf("start %s: %w", i.name, err)
	}
	i.logger.Info("implementation started",
		"implementation", i.name,
		"reported_name", started.Name(),
	)
	return started, nil
}

// Dialect selects the dialect for subsequent cases.
func (i *Implementation) Dialect(ctx context.Context, dialect string) (protocol.StartedDialect, error) {
	ok, err := exchange(ctx, i, protocol.Dialect{Dialect: dialect})
	if err != nil {
		return protocol.StartedDialect{}, fmt.Errorf("dialect %s: %w", i.name, err)
	}
	if !ok.OK {
		return ok, fmt.Errorf("%w: %s does not support %s", ErrDialectRejected, i.name, dialect)
	}
	return ok, nil
}

// RunValidation sends run and turns whatever happens into an outcome.
// tests are the unstripped tests of the case, used for their expectations.
func (i *Implementation) RunValidation(ctx context.Context, run protocol.Run, tests []testcase.Test) outcome.Case {
	expected := testcase.Expected(tests)

	response, err := exchange(ctx, i, run)
	if err == nil {
		err = response.CheckLength(len(tests))
	}
	switch {
	case err == nil:
		if response.Seq() != run.Seq {
			i.logger.Warn("response seq mismatch",
				"implementation", i.name,
				"sent", run.Seq,
				"got", response.Seq(),
			)
		}
		return response.Outcome(i.name, expected)
	case errors.Is(err, ErrNoResponse):
		i.logger.Warn("no response",
			"implementation", i.name,
			"seq", run.Seq,
			"error", err,
		)
		return outcome.Empty{Impl: i.name}
	default:
		i.logger.Warn("case errored in driver",
			"implementation", i.name,
			"seq", run.Seq,
			"error", err,
		)
		details := map[string]any{"message": err.Error()}
		if tail := i.stderr.String(); tail != "" {
			details["stderr"] = tail
		}
		return outcome.Uncaught(i.name, run.Seq, details)
	}
}

// Stop asks the implementation to exit. No response is awaited.
func (i *Implementation) Stop(ctx context.Context) error {
	request, err := protocol.ToRequest(i.codec, protocol.StopCommand)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.send(ctx, request)
}

// Close releases the streams and, for launched processes, waits for exit.
func (i *Implementation) Close() error {
	var err error
	i.closeOnce.Do(func() {
		close(i.done)
		if i.closer != nil {
			err = i.closer()
		}
	})
	return err
}

func exchange[R any](ctx context.Context, i *Implementation, cmd protocol.Command[R]) (R, error) {
	var zero R

	request, err := protocol.ToRequest(i.codec, cmd)
	if err != nil {
		return zero, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	name := cmd.Definition().Name()
	i.logger.Debug("sending command", "implementation", i.name, "cmd", name)

	if err := i.send(ctx, request); err != nil {
		return zero, err
	}
	data, err := i.receive(ctx)
	if err != nil {
		return zero, err
	}

	i.logger.Debug("received response", "implementation", i.name, "cmd", name, "bytes", len(data))
	return protocol.FromResponse(i.codec, cmd, data)
}

// EncodeRequest renders a request as one canonical (RFC 8785) JSON line.
func EncodeRequest(request map[string]any) ([]byte, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize request: %w", err)
	}
	return append(canonical, '\n'), nil
}

// send writes one request line. A write the implementation does not drain
// within the timeout counts as a missing response, and the abandoned write
// is left to Close.
func (i *Implementation) send(ctx context.Context, request map[string]any) error {
	if i.silent {
		return fmt.Errorf("%w: an earlier exchange went unanswered", ErrNoResponse)
	}
	data, err := EncodeRequest(request)
	if err != nil {
		return err
	}

	written := make(chan error, 1)
	go func() {
		_, err := i.w.Write(data)
		written <- err
	}()

	timer := time.NewTimer(i.timeout)
	defer timer.Stop()

	select {
	case err := <-written:
		if err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		return nil
	case <-timer.C:
		i.silent = true
		return fmt.Errorf("%w: request not read within %s", ErrNoResponse, i.timeout)
	case <-ctx.Done():
		i.silent = true
		return fmt.Errorf("%w: %v", ErrNoResponse, ctx.Err())
	}
}

// unresponsive reports whether an exchange was abandoned.
func (i *Implementation) unresponsive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.silent
}

func (i *Implementation) receive(ctx context.Context) ([]byte, error) {
	if i.silent {
		return nil, fmt.Errorf("%w: an earlier exchange went unanswered", ErrNoResponse)
	}

	timer := time.NewTimer(i.timeout)
	defer timer.Stop()

	select {
	case l, ok := <-i.lines:
		if !ok || l.err != nil {
			i.silent = true
			if !ok || errors.Is(l.err, io.EOF) {
				return nil, fmt.Errorf("%w: output closed", ErrNoResponse)
			}
			return nil, fmt.Errorf("%w: %v", ErrNoResponse, l.err)
		}
		return l.data, nil
	case <-timer.C:
		i.silent = true
		return nil, fmt.Errorf("%w: timed out after %s", ErrNoResponse, i.timeout)
	case <-ctx.Done():
		i.silent = true
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, ctx.Err())
	}
}

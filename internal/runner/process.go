package runner

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/roach88/ihop/internal/protocol"
)

// exitGrace is how long Close waits for a process to exit on its own.
const exitGrace = 5 * time.Second

// stderrTail bounds the diagnostic output kept from a process.
const stderrTail = 16 * 1024

// Launch starts argv as a child process and speaks to it over its stdin and
// stdout. Its stderr is kept for diagnostics.
func Launch(name string, argv []string, codec *protocol.Codec, opts ...Option) (*Implementation, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("no command given for implementation %s", name)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	// Start() closes all pipes on failure.
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start implementation %s: %w", name, err)
	}

	impl := New(name, stdout, stdin, codec, opts...)
	impl.stderr = stderr
	impl.closer = func() error {
		stdin.Close()

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		grace := exitGrace
		if impl.unresponsive() {
			grace = 0
		}

		select {
		case err := <-done:
			if err != nil {
				impl.logger.Warn("implementation exited with error", "implementation", name, "error", err)
			}
			return nil
		case <-time.After(grace):
			impl.logger.Warn("implementation did not exit, killing process", "implementation", name)
			if cmd.Process != nil {
				cmd.Process.Kill()
			}
			<-done
			return nil
		}
	}
	return impl, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

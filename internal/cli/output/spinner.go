package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner displays a progress animation while waiting on the server.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	done    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

// NewSpinner creates a new spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
	}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(message string) {
	s.stop("✓ " + message)
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(message string) {
	s.stop("✗ " + message)
}

func (s *Spinner) stop(line string) {
	s.once.Do(func() {
		close(s.done)
		s.stopped.Wait()
		fmt.Fprintf(s.w, "\r\033[K%s\n", line)
	})
}

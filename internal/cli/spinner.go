package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// spinnerInterval is the delay between animation frames.
const spinnerInterval = 80 * time.Millisecond

// Spinner animates a progress indicator on stderr while a long operation
// runs. It stops on an explicit Stop or when its parent context ends, and
// always erases its output line before returning the terminal.
type Spinner struct {
	message string
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	out     io.Writer
	idle    chan struct{} // closed when the animation goroutine has exited
	started bool
}

// newSpinner creates a spinner that only stops on an explicit Stop.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner tied to ctx. When ctx ends the
// animation stops on its own and Cancelled reports true.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	inner, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		parent:  ctx,
		ctx:     inner,
		cancel:  cancel,
		out:     os.Stderr,
		idle:    make(chan struct{}),
	}
}

// Start launches the animation goroutine. The goroutine owns the output
// line until it erases it on the way out, so no lock is needed around the
// frame writes.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.idle)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.erase()
				return
			case <-ticker.C:
				glyph := spinnerFrames[frame%len(spinnerFrames)]
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.message))
			}
		}
	}()
}

// Stop ends the animation and waits for the line to be erased. It is safe
// to call repeatedly, and before Start.
func (s *Spinner) Stop() {
	s.cancel()
	if s.started {
		<-s.idle
	}
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended, as opposed to the
// spinner being stopped explicitly.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

func (s *Spinner) erase() {
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

package output

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// frameInterval is how often the indicator advances.
const frameInterval = 100 * time.Millisecond

var (
	brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	asciiFrames   = []string{"|", "/", "-", "\\"}
)

// Spinner animates a one-line progress indicator on stderr while a slow
// remote operation (discovery, reconciliation) runs. It stays silent in
// JSON mode so machine output is never interleaved with animation frames.
type Spinner struct {
	label    string
	quit     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	running bool
}

// NewSpinner prepares an indicator with the given label.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label: label,
		quit:  make(chan struct{}),
	}
}

// Start launches the animation. Repeated calls after the first are no-ops.
func (s *Spinner) Start() {
	s.mu.Lock()
	alreadyRunning := s.running
	s.running = true
	s.mu.Unlock()
	if alreadyRunning || JSONMode {
		return
	}
	go s.animate()
}

func (s *Spinner) animate() {
	frames := brailleFrames
	if NoColor() {
		frames = asciiFrames
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.quit:
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r%s %s", frames[frame%len(frames)], s.label)
		}
	}
}

// Stop halts the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(s.quit)
	})
}

// StopWithSuccess halts the animation and logs msg as a success.
func (s *Spinner) StopWithSuccess(msg string) {
	s.Stop()
	Success(msg)
}

// StopWithError halts the animation and logs msg as a failure.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	Fail(msg)
}

// WithSpinner animates label while fn runs and reports fn's outcome on the
// final line. The error is returned unchanged.
func WithSpinner(label string, fn func() error) error {
	sp := NewSpinner(label)
	sp.Start()
	err := fn()
	if err != nil {
		sp.StopWithError(label + ": failed")
		return err
	}
	sp.StopWithSuccess(label)
	return nil
}

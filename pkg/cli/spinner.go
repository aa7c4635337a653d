package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

const startingText = "Starting..."

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

// StartupSignal tells the startup spinner that the server is ready. It is
// single use. A nil *StartupSignal is valid and Done on it does nothing.
type StartupSignal struct {
	ready   chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// StartSpinner shows a spinner on w until Done is called on the returned
// signal. When enabled is false nothing is drawn, a debug line is logged
// and the returned signal is nil.
func StartSpinner(enabled bool, w io.Writer, logger *slog.Logger) *StartupSignal {
	if logger == nil {
		logger = slog.Default()
	}
	if !enabled {
		logger.Debug("starting server, this might take a few minutes...")
		return nil
	}

	s := &StartupSignal{
		ready:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	go s.run(w, spinner.Dot)
	return s
}

func (s *StartupSignal) run(w io.Writer, sp spinner.Spinner) {
	defer close(s.stopped)

	ticker := time.NewTicker(sp.FPS)
	defer ticker.Stop()

	frame := 0
	for {
		fmt.Fprintf(w, "\r%s %s", spinnerStyle.Render(sp.Frames[frame]), startingText)
		frame = (frame + 1) % len(sp.Frames)

		select {
		case <-s.ready:
			fmt.Fprint(w, "\r\033[2K")
			return
		case <-ticker.C:
		}
	}
}

// Done signals readiness without blocking. Only the first call reaches the
// spinner; later calls log a warning.
func (s *StartupSignal) Done() {
	if s == nil {
		return
	}

	sent := false
	s.once.Do(func() {
		select {
		case s.ready <- struct{}{}:
			sent = true
		default:
		}
	})
	if !sent {
		s.logger.Warn("spinner channel is closed")
	}
}

// Stop clears the spinner when startup is abandoned before Done. After
// Done it does nothing. It never warns and returns once the line is clear.
func (s *StartupSignal) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.ready <- struct{}{}
	})
	<-s.stopped
}

// Wait blocks until the spinner has cleared its line.
func (s *StartupSignal) Wait() {
	if s == nil {
		return
	}
	<-s.stopped
}

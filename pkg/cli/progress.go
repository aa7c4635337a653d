package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// ProgressReporter reports progress over a known number of steps.
type ProgressReporter interface {
	Start(total int)
	Step(label string)
	Finish()
	Error(label string, err error)
}

// StepProgress prints one line per completed step.
type StepProgress struct {
	mu      sync.Mutex
	total   int
	current int
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a progress reporter that writes to w.
// If w is nil, it defaults to os.Stdout.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &StepProgress{writer: w}
}

// Start resets the reporter for total steps.
func (p *StepProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()
}

// Step records a completed step.
func (p *StepProgress) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	fmt.Fprintf(p.writer, "%s %s %s\n", okStyle.Render("✓"), p.counter(), label)
}

// Error records a failed step.
func (p *StepProgress) Error(label string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	fmt.Fprintf(p.writer, "%s %s %s: %v\n", failStyle.Render("✗"), p.counter(), label, err)
}

// Finish prints the elapsed time.
func (p *StepProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.started).Round(time.Millisecond)
	fmt.Fprintln(p.writer, dimStyle.Render(fmt.Sprintf("done: %d/%d in %s", p.current, p.total, elapsed)))
}

func (p *StepProgress) counter() string {
	return dimStyle.Render(fmt.Sprintf("[%d/%d]", p.current, p.total))
}

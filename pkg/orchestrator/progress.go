package orchestrator

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	stepStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// progress prints the operator-facing step log.
type progress struct {
	w io.Writer
	n int
}

func (p *progress) title(s string) {
	fmt.Fprintln(p.w, titleStyle.Render(s))
	fmt.Fprintln(p.w, strings.Repeat("=", len(s)))
}

func (p *progress) step(format string, args ...any) {
	p.n++
	fmt.Fprintf(p.w, "\n%s\n", stepStyle.Render(fmt.Sprintf("%d. %s", p.n, fmt.Sprintf(format, args...))))
}

func (p *progress) ok(format string, args ...any) {
	fmt.Fprintln(p.w, okStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p *progress) info(format string, args ...any) {
	fmt.Fprintln(p.w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *progress) fail(err error) {
	fmt.Fprintln(p.w, errStyle.Render("Error: "+err.Error()))
}

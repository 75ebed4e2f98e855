package reporter

import (
	"io"
	"text/template"

	"github.com/charmbracelet/lipgloss"
)

var headlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

var textTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"headline": func(s string) string { return headlineStyle.Render(s) },
}).Parse(`
{{ if .DryRun }}{{ headline "Dry run complete: nothing was changed" }}
   Would update VectorChord to {{ .Plan.Version }}
{{ else }}{{ headline (printf "Successfully updated VectorChord to version %s" .Plan.Version) }}
{{ end }}   Branch: {{ .Plan.Branch }}
   Tag: {{ .Plan.Tag }}
`))

// TextReporter prints the human-readable summary shown at the end of a run.
type TextReporter struct{}

func (r *TextReporter) Report(w io.Writer, s Summary) error {
	return textTmpl.Execute(w, s)
}

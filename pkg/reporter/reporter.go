package reporter

import (
	"io"

	"github.com/vectorchord-updater/pkg/gitops"
)

// Summary describes a completed version bump.
type Summary struct {
	Repository string      `json:"repository"`
	Dockerfile string      `json:"dockerfile"`
	Remote     string      `json:"remote"`
	DryRun     bool        `json:"dry_run"`
	Plan       gitops.Plan `json:"plan"`
}

type Reporter interface {
	Report(w io.Writer, s Summary) error
}

func New(format string) Reporter {
	switch format {
	case "json":
		return &JSONReporter{}
	case "table":
		return &TableReporter{}
	default:
		return &TextReporter{}
	}
}

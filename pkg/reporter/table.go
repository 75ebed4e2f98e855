package reporter

import (
	"fmt"
	"io"
	"text/tabwriter"
)

type TableReporter struct{}

func (r *TableReporter) Report(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintln(tw, "-----\t-----")

	rows := [][2]string{
		{"Repository", s.Repository},
		{"Version", s.Plan.Version},
		{"Branch", s.Plan.Branch},
		{"Tag", s.Plan.Tag},
		{"Commit", s.Plan.CommitMessage},
		{"Dockerfile", s.Dockerfile},
		{"Remote", s.Remote},
		{"Dry run", fmt.Sprintf("%t", s.DryRun)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

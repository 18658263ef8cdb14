package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/rekey/internal/scan"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *scan.Report) error {
	ew := &errWriter{w: w}

	ew.printf("rekey scan — %s\n", report.Revision)
	if report.Repo.Root != "" {
		if report.Repo.Branch != "" {
			ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
		} else {
			ew.printf("Repository: %s\n", report.Repo.Root)
		}
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Commits: %d scanned, %d would change\n", report.Scanned, report.Changed)
	ew.println(strings.Repeat("─", 60))

	if len(report.Commits) == 0 {
		ew.println("\nNo commit messages reference mapped keys.")
		return ew.err
	}

	for _, c := range report.Commits {
		marker := " "
		if c.Changed() {
			marker = "~"
		}
		ew.printf("\n%s %s %s\n", marker, c.ShortHash, c.Subject)
		for _, ch := range c.Changes {
			ew.printf("    %s → %s\n", ch.Token, ch.Replacement)
		}
		if len(c.Unmapped) > 0 {
			ew.printf("    unmapped: %s\n", strings.Join(c.Unmapped, ", "))
		}
	}
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

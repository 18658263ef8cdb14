package cli

import (
	"fmt"

	"github.com/dshills/rekey/internal/gitctx"
	"github.com/dshills/rekey/internal/output"
	"github.com/dshills/rekey/internal/scan"
	"github.com/spf13/cobra"
)

var (
	flagScanRepo   string
	flagScanLimit  int
	flagScanAll    bool
	flagScanFormat string
	flagScanOut    string
	flagScanCheck  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [revision]",
	Short: "Report commits whose messages would be rewritten",
	Long: "Walk history from revision (default HEAD) and report every commit message that\n" +
		"contains a mapped key. Nothing is modified. With --check, exit 1 if any would change.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rw, cfg := loadRewriter(cmd)
		if rw == nil {
			return nil
		}

		revision := "HEAD"
		if len(args) == 1 {
			revision = args[0]
		}
		format := cfg.Format
		if flagScanFormat != "" {
			format = flagScanFormat
		}
		if _, err := output.GetWriter(format); err != nil {
			return err
		}

		repo, err := gitctx.Open(flagScanRepo)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		report, err := scan.Run(cmd.Context(), repo, rw, scan.Options{
			Revision: revision,
			Limit:    flagScanLimit,
			All:      flagScanAll,
		})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		report.Version = version

		if err := writeScanReport(cmd, report, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if flagScanCheck && report.Changed > 0 {
			exitCode = ExitChanges
		}
		return nil
	},
}

func writeScanReport(cmd *cobra.Command, report *scan.Report, format string) error {
	if flagScanOut != "" {
		return output.WriteReport(report, format, flagScanOut)
	}
	w, err := output.GetWriter(format)
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), report)
}

func init() {
	scanCmd.Flags().StringVar(&flagScanRepo, "repo", ".", "Repository path")
	scanCmd.Flags().IntVar(&flagScanLimit, "limit", 0, "Maximum number of commits to scan (0 = all)")
	scanCmd.Flags().BoolVar(&flagScanAll, "all", false, "Include commits that would not change")
	scanCmd.Flags().StringVar(&flagScanFormat, "format", "", "Output format (text, json)")
	scanCmd.Flags().StringVar(&flagScanOut, "out", "", "Output file path (default: stdout)")
	scanCmd.Flags().BoolVar(&flagScanCheck, "check", false, "Exit 1 if any commit message would change")
}

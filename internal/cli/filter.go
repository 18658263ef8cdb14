package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/rekey/internal/rewrite"
	"github.com/spf13/cobra"
)

// demoText is the sample message rewritten by `rekey demo`.
const demoText = "SK-123 this fixes a bug RnD-23"

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Rewrite a commit message read from stdin",
	Long: "Read one commit message from stdin and write the rewritten message to stdout.\n\n" +
		"Use as a message filter during a history rewrite:\n\n" +
		"  git filter-branch --msg-filter 'rekey filter --mapping /abs/path/mapping.json' -- --all",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rw, _ := loadRewriter(cmd)
		if rw == nil {
			return nil
		}
		if err := filterMessage(cmd, rw, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

var messageCmd = &cobra.Command{
	Use:   "message <file>",
	Short: "Rewrite a commit message file in place",
	Long:  "Rewrite the commit message stored in <file>. Used by the commit-msg hook installed with `rekey hook install`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rw, _ := loadRewriter(cmd)
		if rw == nil {
			return nil
		}
		if _, err := rewriteMessageFile(cmd, rw, args[0]); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Rewrite a sample message with the configured mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rw, _ := loadRewriter(cmd)
		if rw == nil {
			return nil
		}
		writeDemo(cmd.OutOrStdout(), rw)
		return nil
	},
}

func filterMessage(cmd *cobra.Command, rw *rewrite.Rewriter, in io.Reader, out io.Writer) error {
	msg, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading message: %w", err)
	}
	result, changes := rw.RewriteBytes(msg)
	logChanges(cmd, changes)
	if _, err := out.Write(result); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// rewriteMessageFile rewrites path in place and reports whether it changed.
// The file is left untouched when no key is mapped.
func rewriteMessageFile(cmd *cobra.Command, rw *rewrite.Rewriter, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("reading message file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading message file: %w", err)
	}
	result, changes := rw.RewriteBytes(data)
	if len(changes) == 0 {
		return false, nil
	}
	logChanges(cmd, changes)
	if err := os.WriteFile(path, result, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("writing message file: %w", err)
	}
	return true, nil
}

func writeDemo(w io.Writer, rw *rewrite.Rewriter) {
	fmt.Fprintln(w, "Original text: ", demoText)
	fmt.Fprintln(w, "Updated text:  ", rw.Rewrite(demoText))
}

package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> rekey commit-msg hook >>>"
	hookMarkerEnd   = "# <<< rekey commit-msg hook <<<"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git commit-msg hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install rekey as a git commit-msg hook",
	Long:  "Install a commit-msg hook that runs `rekey message`. --mapping and --prefix, when given, are baked into the hook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		mappingPath := flagMapping
		if mappingPath != "" {
			// hooks run from the repository root, not the caller's directory
			if abs, err := filepath.Abs(mappingPath); err == nil {
				mappingPath = abs
			}
		}
		var prefix *string
		if rootCmd.PersistentFlags().Changed("prefix") {
			prefix = &flagPrefix
		}
		section := generateHookScript(mappingPath, prefix)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			// No existing hook — create new file
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceRekeySection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Installed rekey commit-msg hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove rekey commit-msg hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No commit-msg hook found.")
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content := removeRekeySection(string(existing))

		// If only shebang (and whitespace) remains, delete the file entirely
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing hook file: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed rekey commit-msg hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed rekey section from %s\n", hookPath)
		return nil
	},
}

func getHookPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-path", "hooks").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-path hooks failed)")
	}
	hooksDir := strings.TrimSpace(string(out))
	return filepath.Join(hooksDir, "commit-msg"), nil
}

// generateHookScript builds the marker-delimited hook section. A nil prefix
// leaves the prefix to rekey's own configuration.
func generateHookScript(mappingPath string, prefix *string) string {
	args := []string{"rekey", "message"}
	if mappingPath != "" {
		args = append(args, "--mapping", shellQuote(mappingPath))
	}
	if prefix != nil {
		args = append(args, "--prefix", shellQuote(*prefix))
	}
	args = append(args, `"$1"`)

	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString(strings.Join(args, " ") + "\n")
	b.WriteString("REKEY_EXIT=$?\n")
	b.WriteString("if [ $REKEY_EXIT -ne 0 ]; then\n")
	b.WriteString("  echo \"rekey: warning — issue keys not rewritten (exit $REKEY_EXIT), keeping message as written\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

// shellQuote wraps s in single quotes for /bin/sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func replaceRekeySection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		// No existing rekey section — append
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	// Trim leading newline from after to avoid double newlines
	after = strings.TrimPrefix(after, "\n")
	return before + section + after
}

func removeRekeySection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")

	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
}

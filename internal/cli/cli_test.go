package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/rekey/internal/config"
	"github.com/dshills/rekey/internal/mapping"
	"github.com/dshills/rekey/internal/rewrite"
	"github.com/dshills/rekey/internal/scan"
	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags resets all package-level flag variables and their Changed state.
func resetFlags() {
	flagMapping = ""
	flagPrefix = ""
	flagVerbose = false
	flagScanRepo = "."
	flagScanLimit = 0
	flagScanAll = false
	flagScanFormat = ""
	flagScanOut = ""
	flagScanCheck = false

	unset := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(unset)
	scanCmd.Flags().VisitAll(unset)
}

// isolate gives the test its own config dir and working directory.
func isolate(t *testing.T) string {
	t.Helper()
	work := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{config.EnvMappingFile, config.EnvPrefix, config.EnvFormat} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Chdir(work)
	return work
}

func writeMapping(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "mapping.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns stdout, stderr and
// the exit code Run would return.
func execute(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	resetFlags()
	exitCode = ExitSuccess

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := ExitUsageError
	if err := rootCmd.Execute(); err == nil {
		code = exitCode
	}
	return stdout.String(), stderr.String(), code
}

func testCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	if err := rootCmd.PersistentFlags().Set("mapping", "m.json"); err != nil {
		t.Fatal(err)
	}
	if err := rootCmd.PersistentFlags().Set("prefix", ""); err != nil {
		t.Fatal(err)
	}
	defer resetFlags()

	m := buildOverrides()
	if m["mappingFile"] != "m.json" {
		t.Errorf("mappingFile = %q, want %q", m["mappingFile"], "m.json")
	}
	if v, ok := m["prefix"]; !ok || v != "" {
		t.Errorf("prefix = %q, %v; want explicit empty", v, ok)
	}
}

// --- command helpers ---

func TestFilterMessage(t *testing.T) {
	resetFlags()
	rw := rewrite.New(mapping.New(map[string]string{"SK-123": "456"}), "AB#")
	var out bytes.Buffer
	err := filterMessage(testCmd(), rw, strings.NewReader("SK-123 this fixes a bug RnD-23\n"), &out)
	if err != nil {
		t.Fatalf("filterMessage error: %v", err)
	}
	if out.String() != "AB#456 this fixes a bug RnD-23\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestFilterMessage_Empty(t *testing.T) {
	resetFlags()
	rw := rewrite.New(mapping.New(map[string]string{"SK-123": "456"}), "AB#")
	var out bytes.Buffer
	if err := filterMessage(testCmd(), rw, strings.NewReader(""), &out); err != nil {
		t.Fatalf("filterMessage error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want empty", out.String())
	}
}

func TestRewriteMessageFile(t *testing.T) {
	resetFlags()
	rw := rewrite.New(mapping.New(map[string]string{"SK-123": "456"}), "AB#")
	path := filepath.Join(t.TempDir(), "COMMIT_EDITMSG")
	os.WriteFile(path, []byte("SK-123 subject\n\n# comment\n"), 0o600)

	changed, err := rewriteMessageFile(testCmd(), rw, path)
	if err != nil {
		t.Fatalf("rewriteMessageFile error: %v", err)
	}
	if !changed {
		t.Error("expected file to change")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "AB#456 subject\n\n# comment\n" {
		t.Errorf("file = %q", string(data))
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestRewriteMessageFile_Unchanged(t *testing.T) {
	resetFlags()
	rw := rewrite.New(mapping.New(map[string]string{"SK-123": "456"}), "AB#")
	path := filepath.Join(t.TempDir(), "COMMIT_EDITMSG")
	os.WriteFile(path, []byte("RnD-23 only\n"), 0o644)

	changed, err := rewriteMessageFile(testCmd(), rw, path)
	if err != nil {
		t.Fatalf("rewriteMessageFile error: %v", err)
	}
	if changed {
		t.Error("file should not change")
	}
}

func TestRewriteMessageFile_Missing(t *testing.T) {
	rw := rewrite.New(mapping.Mapping{}, "AB#")
	if _, err := rewriteMessageFile(testCmd(), rw, filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteDemo(t *testing.T) {
	rw := rewrite.New(mapping.New(map[string]string{"SK-123": "456"}), "AB#")
	var out bytes.Buffer
	writeDemo(&out, rw)
	want := "Original text:  SK-123 this fixes a bug RnD-23\n" +
		"Updated text:   AB#456 this fixes a bug RnD-23\n"
	if out.String() != want {
		t.Errorf("demo output = %q, want %q", out.String(), want)
	}
}

// --- end-to-end command tests ---

func TestCmd_Filter(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)

	stdout, stderr, code := execute(t, "SK-123 this fixes a bug RnD-23", "filter")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if stdout != "AB#456 this fixes a bug RnD-23" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCmd_Filter_PrefixAndMappingFlags(t *testing.T) {
	isolate(t)
	path := writeMapping(t, t.TempDir(), `{"SK-123": "456"}`)

	stdout, _, code := execute(t, "SK-123 and SK-123", "filter", "--mapping", path, "--prefix", "")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "456 and 456" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCmd_Filter_Verbose(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)

	_, stderr, code := execute(t, "SK-123", "filter", "-v")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr, "loaded 1 keys") || !strings.Contains(stderr, "SK-123 -> AB#456") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCmd_Filter_EnvPrefix(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)
	t.Setenv(config.EnvPrefix, "#")

	stdout, _, _ := execute(t, "SK-123", "filter")
	if stdout != "#456" {
		t.Errorf("stdout = %q, want %q", stdout, "#456")
	}
}

func TestCmd_Filter_MappingErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing", "", "mapping file not found"},
		{"invalid json", `{"SK-1": `, "not valid JSON"},
		{"not an object", `["SK-1"]`, "must be a JSON object"},
		{"non-string value", `{"SK-1": 1}`, "must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.content != "" {
				writeMapping(t, dir, tt.content)
			}
			stdout, stderr, code := execute(t, "SK-1", "filter")
			if code != ExitConfigError {
				t.Errorf("exit code = %d, want %d", code, ExitConfigError)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want nothing written", stdout)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.want)
			}
		})
	}
}

func TestCmd_Message(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)
	msgPath := filepath.Join(dir, "COMMIT_EDITMSG")
	os.WriteFile(msgPath, []byte("SK-123 fix\n"), 0o644)

	_, stderr, code := execute(t, "", "message", msgPath)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	data, _ := os.ReadFile(msgPath)
	if string(data) != "AB#456 fix\n" {
		t.Errorf("message file = %q", string(data))
	}
}

func TestCmd_Message_MissingFile(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{}`)

	_, _, code := execute(t, "", "message", filepath.Join(dir, "nope"))
	if code != ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", code, ExitRuntimeError)
	}
}

func TestCmd_Message_NoArgs(t *testing.T) {
	isolate(t)
	_, _, code := execute(t, "", "message")
	if code != ExitUsageError {
		t.Errorf("exit code = %d, want %d", code, ExitUsageError)
	}
}

func TestCmd_Demo(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)

	stdout, _, code := execute(t, "", "demo")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "Updated text:   AB#456 this fixes a bug RnD-23") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestCmd_Version(t *testing.T) {
	stdout, _, code := execute(t, "", "version")
	if code != ExitSuccess || stdout != "rekey version "+version+"\n" {
		t.Errorf("version output = %q (code %d)", stdout, code)
	}
}

func TestCmd_ConfigSetAndShow(t *testing.T) {
	isolate(t)

	if _, stderr, code := execute(t, "", "config", "set", "prefix", "#"); code != ExitSuccess {
		t.Fatalf("config set exit code = %d, stderr: %s", code, stderr)
	}
	stdout, _, code := execute(t, "", "config", "show")
	if code != ExitSuccess {
		t.Fatalf("config show exit code = %d", code)
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("config show output is not JSON: %v\n%s", err, stdout)
	}
	if cfg.PrefixValue() != "#" {
		t.Errorf("prefix = %q, want %q", cfg.PrefixValue(), "#")
	}
}

func TestCmd_ConfigSet_UnknownKey(t *testing.T) {
	isolate(t)
	_, _, code := execute(t, "", "config", "set", "bogus", "x")
	if code != ExitUsageError {
		t.Errorf("exit code = %d, want %d", code, ExitUsageError)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path, err := config.ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCmd_ConfigSet_KeepsExistingFields(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `{"mappingFile": "/data/mapping.json"}`)

	if _, stderr, code := execute(t, "", "config", "set", "prefix", "#"); code != ExitSuccess {
		t.Fatalf("config set exit code = %d, stderr: %s", code, stderr)
	}
	data, _ := os.ReadFile(path)
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not JSON: %v", err)
	}
	if cfg.MappingFile != "/data/mapping.json" {
		t.Errorf("mappingFile = %q, want it preserved", cfg.MappingFile)
	}
	if cfg.PrefixValue() != "#" {
		t.Errorf("prefix = %q, want %q", cfg.PrefixValue(), "#")
	}
}

func TestCmd_ConfigSet_CorruptFile(t *testing.T) {
	isolate(t)
	corrupt := `{"mappingFile": "/data/mapping.json",`
	path := writeConfigFile(t, corrupt)

	_, stderr, code := execute(t, "", "config", "set", "prefix", "#")
	if code != ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, ExitConfigError)
	}
	if !strings.Contains(stderr, "parsing config file") {
		t.Errorf("stderr = %q", stderr)
	}
	data, _ := os.ReadFile(path)
	if string(data) != corrupt {
		t.Errorf("corrupt config file was overwritten: %q", string(data))
	}
}

func TestCmd_ConfigShow_CorruptFile(t *testing.T) {
	isolate(t)
	writeConfigFile(t, "{not json")

	stdout, stderr, code := execute(t, "", "config", "show")
	if code != ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, ExitConfigError)
	}
	if stdout != "" || !strings.HasPrefix(stderr, "Error: ") {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}
}

func TestCmd_ConfigInit_WithFlags(t *testing.T) {
	isolate(t)

	if _, stderr, code := execute(t, "", "config", "init", "--mapping", "/data/m.json", "--prefix", ""); code != ExitSuccess {
		t.Fatalf("config init exit code = %d, stderr: %s", code, stderr)
	}
	cfg, err := config.LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.MappingFile != "/data/m.json" {
		t.Errorf("mappingFile = %q", cfg.MappingFile)
	}
	if cfg.Prefix == nil || *cfg.Prefix != "" {
		t.Errorf("prefix = %v, want explicit empty", cfg.Prefix)
	}
	if cfg.Format != "text" {
		t.Errorf("format = %q, want default", cfg.Format)
	}
}

func TestCmd_Filter_UnicodeBoundary(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-1": "9"}`)

	stdout, _, code := execute(t, "øSK-1 og SK-1é, men SK-1 ja", "filter")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	// the standalone SK-1 triggers a global replace of every occurrence
	if stdout != "øAB#9 og AB#9é, men AB#9 ja" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, _ = execute(t, "øSK-1 og SK-1é", "filter")
	if stdout != "øSK-1 og SK-1é" {
		t.Errorf("stdout = %q, want unchanged", stdout)
	}
}

// --- scan ---

func setupScanRepo(t *testing.T, messages ...string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, msg := range messages {
		os.WriteFile(filepath.Join(dir, "file.txt"), []byte(msg), 0o644)
		if _, err := wt.Add("file.txt"); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "Test", Email: "test@test.com", When: when.Add(time.Duration(i) * time.Minute)},
		}); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCmd_Scan(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)
	repoDir := setupScanRepo(t, "SK-123 first\n", "plain second\n")

	stdout, stderr, code := execute(t, "", "scan", "--repo", repoDir, "--format", "json")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	var report scan.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("scan output is not JSON: %v\n%s", err, stdout)
	}
	if report.Scanned != 2 || report.Changed != 1 {
		t.Errorf("scanned/changed = %d/%d, want 2/1", report.Scanned, report.Changed)
	}
	if report.Version != version {
		t.Errorf("Version = %q, want %q", report.Version, version)
	}
	if len(report.Commits) != 1 || report.Commits[0].After != "AB#456 first\n" {
		t.Errorf("Commits = %+v", report.Commits)
	}
}

func TestCmd_Scan_Check(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)
	repoDir := setupScanRepo(t, "SK-123 first\n")

	stdout, _, code := execute(t, "", "scan", "--repo", repoDir, "--check")
	if code != ExitChanges {
		t.Errorf("exit code = %d, want %d", code, ExitChanges)
	}
	if !strings.Contains(stdout, "SK-123 → AB#456") {
		t.Errorf("stdout = %q", stdout)
	}

	clean := setupScanRepo(t, "AB#456 first\n")
	_, _, code = execute(t, "", "scan", "--repo", clean, "--check")
	if code != ExitSuccess {
		t.Errorf("clean history exit code = %d, want %d", code, ExitSuccess)
	}
}

func TestCmd_Scan_Out(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{"SK-123": "456"}`)
	repoDir := setupScanRepo(t, "SK-123 first\n")
	outPath := filepath.Join(t.TempDir(), "report.json")

	if _, stderr, code := execute(t, "", "scan", "--repo", repoDir, "--format", "json", "--out", outPath); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), `"changed": 1`) {
		t.Errorf("report = %s", data)
	}
}

func TestCmd_Scan_BadFormat(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{}`)
	_, _, code := execute(t, "", "scan", "--repo", dir, "--format", "sarif")
	if code != ExitUsageError {
		t.Errorf("exit code = %d, want %d", code, ExitUsageError)
	}
}

func TestCmd_Scan_NotARepo(t *testing.T) {
	dir := isolate(t)
	writeMapping(t, dir, `{}`)
	_, _, code := execute(t, "", "scan", "--repo", t.TempDir())
	if code != ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", code, ExitRuntimeError)
	}
}

// Package gitctx reads commit messages and repository metadata from a git
// repository using go-git, without shelling out to the git binary.
//
// [ListMessages] walks history from a revision, newest first, and is the
// input to the scan command's dry-run report.
package gitctx

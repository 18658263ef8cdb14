// Package cli wires together the Cobra command tree for the rekey binary.
//
// It defines the root command and all subcommands (filter, message, demo,
// scan, hook, config, version), binds flags, reads configuration, loads the
// mapping once per invocation, and returns deterministic exit codes.
package cli

// Package output formats scan reports for display or machine consumption.
//
// Two formats are supported:
//   - text — human-readable terminal output (default)
//   - json — full structured JSON report
//
// Use [GetWriter] to obtain a [Writer] for a given format string, or
// [WriteReport] to write to a file path or stdout.
package output

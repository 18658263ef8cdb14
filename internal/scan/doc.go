// Package scan runs the rewriter over existing history without modifying it
// and reports which commit messages a history rewrite would change.
package scan

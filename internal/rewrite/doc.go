// Package rewrite replaces old issue-tracker keys in commit messages with
// their new identifiers.
//
// A key is any word-boundary-delimited run of ASCII letters, a hyphen and
// ASCII digits (SK-123, RnD-23). Keys found in the mapping become
// prefix+value (AB#456); keys not in the mapping pass through untouched.
//
// Every distinct key found in the text is replaced with a global literal
// substitution, so all occurrences of a mapped key change, including ones
// embedded in a longer token: when SK-123 appears on its own and is mapped,
// XSK-123 elsewhere in the same text becomes XAB#456.
//
// Word boundaries are Unicode-aware: a key glued to any letter, number or
// underscore (øSK-1, SK-1é) is not a key.
package rewrite

package rewrite

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/rekey/internal/mapping"
)

// DefaultPrefix is prepended to mapped values when no prefix is configured.
const DefaultPrefix = "AB#"

// keyPattern matches issue key candidates such as SK-123. Word boundaries
// are checked separately by standalone.
var keyPattern = regexp.MustCompile(`[A-Za-z]+-[0-9]+`)

// Change records one key that was rewritten.
type Change struct {
	Token       string `json:"token"`
	Replacement string `json:"replacement"`
}

// Rewriter rewrites issue keys using a fixed mapping and prefix. It holds no
// mutable state and is safe for concurrent use.
type Rewriter struct {
	mapping mapping.Mapping
	prefix  string
}

// New creates a Rewriter. An empty prefix is allowed and yields bare values.
func New(m mapping.Mapping, prefix string) *Rewriter {
	return &Rewriter{mapping: m, prefix: prefix}
}

// Prefix returns the replacement prefix.
func (r *Rewriter) Prefix() string {
	return r.prefix
}

// Tokens returns the distinct issue keys in text, in order of first
// occurrence, whether or not they are mapped.
func Tokens(text string) []string {
	spans := keyPattern.FindAllStringIndex(text, -1)
	seen := make(map[string]bool, len(spans))
	var unique []string
	for _, span := range spans {
		if !standalone(text, span[0], span[1]) {
			continue
		}
		m := text[span[0]:span[1]]
		if !seen[m] {
			seen[m] = true
			unique = append(unique, m)
		}
	}
	return unique
}

// standalone reports whether text[start:end] is not glued to a word
// character on either side. A rejected candidate never hides a shorter valid
// key: any sub-span starts after a letter or ends before a digit.
func standalone(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

// isWordRune matches the Unicode word characters: letters, numbers and
// underscore. Invalid UTF-8 decodes to RuneError and counts as a boundary.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Rewrite returns text with every mapped key replaced.
func (r *Rewriter) Rewrite(text string) string {
	result, _ := r.RewriteWithChanges(text)
	return result
}

// RewriteWithChanges is Rewrite but also reports which keys were replaced.
// Keys are matched against the original text, then substituted one at a time
// into the progressively rewritten result.
func (r *Rewriter) RewriteWithChanges(text string) (string, []Change) {
	var changes []Change
	for _, token := range Tokens(text) {
		value, ok := r.mapping.Lookup(token)
		if !ok {
			continue
		}
		replacement := r.prefix + value
		if !strings.Contains(text, token) {
			// an earlier, shorter key already consumed this one
			continue
		}
		text = strings.ReplaceAll(text, token, replacement)
		changes = append(changes, Change{Token: token, Replacement: replacement})
	}
	return text, changes
}

// RewriteBytes is RewriteWithChanges for raw commit messages, as read from
// stdin or a message file.
func (r *Rewriter) RewriteBytes(msg []byte) ([]byte, []Change) {
	result, changes := r.RewriteWithChanges(string(msg))
	return []byte(result), changes
}

// Maps reports whether token has an entry in the mapping.
func (r *Rewriter) Maps(token string) bool {
	_, ok := r.mapping.Lookup(token)
	return ok
}

// Package mapping loads the old-to-new ticket key table that drives message
// rewriting.
//
// The table is a JSON object of string keys to string values:
//
//	{
//	  "SK-123": "456",
//	  "SK-124": "457"
//	}
//
// [Load] reads it once at startup into an immutable [Mapping]. Failures are
// classified with the sentinel errors [ErrNotFound], [ErrParse] and
// [ErrFormat] so callers can fail fast with a precise message.
package mapping

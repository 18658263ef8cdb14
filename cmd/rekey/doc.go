// Rekey rewrites old issue-tracker keys in git commit messages to a new
// numbering scheme, driven by a JSON mapping file.
//
// Usage:
//
//	rekey filter < msg                      # rewrite one message from stdin
//	rekey message .git/COMMIT_EDITMSG       # rewrite a message file in place
//	rekey scan origin/main --check          # report messages still to rewrite
//	rekey hook install --mapping map.json   # rewrite new commits automatically
//	rekey demo                              # show the mapping applied to a sample
//
// As a history-rewrite message filter:
//
//	git filter-branch --msg-filter 'rekey filter --mapping /abs/mapping.json' -- --all
package main

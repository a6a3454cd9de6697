// Package main implements the autobump CLI tool.
//
// The autobump tool is a CI helper that looks at the commits of a push, decides
// whether they call for a semantic version bump and, if so, writes the new
// version to the project manifest (default "package.json"), commits it with a
// templated message, tags the commit and pushes both.
//
// Command Usage:
//
//	autobump [flags]
//	autobump version
//
// Commit messages are read from the GitHub event payload (GITHUB_EVENT_PATH or
// --event), or with --from-git from the local history back to the last tag.
//
// The bump is decided by these rules, first match wins:
//
//  1. A subject like "feat(api)!: ..." is a major bump.
//  2. A message matching --major-wording is a major bump.
//  3. A message matching --minor-wording is a minor bump.
//  4. A message matching --patch-wording (when set) is a patch bump.
//  5. A message matching --rc-wording (when set) is a prerelease; the text after
//     the first "-" of the match is the prerelease identifier.
//  6. Otherwise --default applies. A default prerelease is dropped when
//     --rc-wording is set but no message matched it.
//
// Words are plain text, matched case-insensitively, or delimited regular
// expressions such as "/^feat:/m".
//
// A push whose commits contain a previous bump commit (as rendered from
// --commit-message) is ignored, so the bump commit itself never triggers
// another bump.
//
// Examples:
//
//	# Show what would happen for a recorded event
//	autobump --dry-run --event ./event.json
//
//	# Bump a Rust crate from local history, tag with a "v" prefix, no push
//	autobump --from-git --manifest Cargo.toml --tag-prefix v --skip-push
//
//	# Prereleases from "pre-alpha" / "pre-beta" commits
//	autobump --rc-wording 'pre-(alpha|beta)' --default prerelease
//
// All flags have a GitHub Actions input counterpart (INPUT_MAJOR-WORDING,
// INPUT_TAG-PREFIX, ...) and a key of the same name in the YAML config file.
//
// For the library API see the "pkg" package.
package main

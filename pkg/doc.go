// Package autobump decides and applies semantic version bumps from commit
// messages.
//
// It provides functionalities for:
//   - Compiling configured words into matchers, either plain words or
//     delimited regular expressions such as "/pre-(alpha|beta)/i".
//   - Classifying a batch of commit messages into a single bump directive
//     (none, major, minor, patch or prerelease with an identifier).
//   - Detecting commits created by a previous automated bump so a pushed bump
//     commit does not trigger another one.
//   - Reading and writing the version of a package.json, Cargo.toml or Go
//     version file, committing, tagging and pushing the result with git.
//
// The decision engine (CompilePattern, Classifier, LoopGuard) is pure and does
// no I/O. Run sequences it with the manifest and git steps.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    autobump "github.com/bcomnes/autobump/pkg"
//	)
//
//	func main() {
//	    res, err := autobump.Run(context.Background(), autobump.Options{
//	        Dir:      ".",
//	        Manifest: "package.json",
//	        Messages: []string{"feat: add widget"},
//	        Words:    autobump.Words{Major: "BREAKING CHANGE", Minor: "feat", Default: autobump.KindPatch},
//	        Push:     true,
//	        Ref:      "refs/heads/main",
//	    })
//	    if err != nil {
//	        log.Fatalf("version bump failed: %v", err)
//	    }
//	    log.Println("bumped to", res.Tag)
//	}
package autobump

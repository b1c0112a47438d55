// Package reformat drives the formatter over the files of a change and
// reduces its output into reformat segments. Files the formatter cannot
// handle are skipped with a log line; a formatter failure aborts the whole
// run, since a crashed formatter is otherwise indistinguishable from "no
// changes".
package reformat

import (
	"context"
	"regexp"

	"github.com/haiku/haiku-format-bot/cli/internal/change"
	"github.com/haiku/haiku-format-bot/cli/internal/clangformat"
	"github.com/haiku/haiku-format-bot/cli/internal/report"
	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

// extensionPattern lists the file types clang-format understands, per its
// own documentation: C/C++/Objective-C and friends, plus the handful of
// other languages the tool formats.
var extensionPattern = regexp.MustCompile(
	`(?i)^.*\.(?:cpp|cc|c\+\+|cxx|cppm|ccm|cxxm|c\+\+m|c|cl|h|hh|hpp|hxx|m|mm|inc|js|ts|proto|protodevel|java|cs|json|s?vh?)$`)

// Supported reports whether the formatter can handle filename, going by its
// extension (matched case-insensitively).
func Supported(filename string) bool {
	return extensionPattern.MatchString(filename)
}

// FileResult is the formatting outcome for one file. Formatted is nil when
// the formatter reported no changes; Segments holds the reduced reformat
// segments and is derived exactly once.
type FileResult struct {
	Formatted []string
	Segments  []segment.FormatSegment
}

// Result maps filenames to their formatting outcome. Files that never
// reached the formatter (unsupported, deleted, deletion-only) have no entry.
type Result map[string]*FileResult

// Run formats every eligible file of the change and returns the per-file
// results. Eligibility and the target ranges follow the patch: modified
// files are formatted only on their patched ranges, newly added files in
// their entirety. The change itself is not modified.
func Run(ctx context.Context, ch change.Change, runner clangformat.Runner, log *report.Logger) (Result, error) {
	results := make(Result)
	for _, f := range ch.Files {
		if !Supported(f.Filename) {
			log.Infof("Ignoring %s because it does not seem to be a file that `clang-format` can handle", f.Filename)
			continue
		}
		if f.Patch == nil {
			log.Infof("Skipping %s because the file is deleted in the patch", f.Filename)
			continue
		}
		var ranges []segment.Segment
		if f.Base != nil {
			if len(f.PatchSegments) == 0 {
				log.Infof("Skipping %s because the changes in the patch are only deletions", f.Filename)
				continue
			}
			ranges = f.PatchSegments
		}
		formatted, err := runner.Format(ctx, f.Patch, ranges)
		if err != nil {
			return nil, err
		}
		res := &FileResult{Formatted: formatted}
		if formatted == nil {
			log.Infof("%s: no reformats", f.Filename)
			results[f.Filename] = res
			continue
		}
		segs, err := Reduce(f.Patch, formatted)
		if err != nil {
			return nil, err
		}
		res.Segments = segs
		log.Infof("%s: %d segment(s) reformatted", f.Filename, len(segs))
		results[f.Filename] = res
	}
	return results, nil
}

// Package change models the input of one review change: the files it
// touches, their contents on both sides of the patch, and the line ranges
// the patch actually modified. Values are built once and not mutated
// afterwards; formatting results live elsewhere.
package change

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

// File is one file of a change. Base holds the lines before the patch and is
// nil when the patch adds the file; Patch holds the proposed lines and is
// nil when the patch deletes the file. Lines carry no trailing newline.
//
// PatchSegments marks which line ranges of Patch differ from Base, ascending
// and non-overlapping. It stays empty when the patch only removes lines, and
// is not derived at all for added or deleted files.
type File struct {
	Filename      string
	Base          []string
	Patch         []string
	PatchSegments []segment.Segment
}

// NewFile builds a File and derives its patch segments from the difference
// between base and patch.
func NewFile(filename string, base, patch []string) (File, error) {
	f := File{Filename: filename, Base: base, Patch: patch}
	if base == nil || patch == nil {
		return f, nil
	}
	matcher := difflib.NewMatcher(base, patch)
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' || op.J2 == op.J1 {
			// Unchanged, or a deletion leaving no patch-side lines.
			continue
		}
		seg, err := segment.NewRange(op.J1+1, op.J2)
		if err != nil {
			return File{}, err
		}
		f.PatchSegments = append(f.PatchSegments, seg)
	}
	return f, nil
}

// Change is one review change and the files it touches.
type Change struct {
	ID    string
	Files []File
}

// SplitLines splits raw file contents into the newline-free lines the
// pipeline stores. Empty contents yield an empty non-nil slice, keeping
// present-but-empty files distinguishable from absent ones.
func SplitLines(contents string) []string {
	if contents == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(contents, "\n"), "\n")
}

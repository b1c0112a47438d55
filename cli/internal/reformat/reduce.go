package reformat

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

// Reduce compares a file's patched contents with the formatter's output and
// returns the minimal reformat segments describing the difference, in
// ascending line order. Identical inputs reduce to nothing. Line numbers in
// the segments refer to the patched contents; insertion anchors name the
// line the new content goes after.
func Reduce(patch, formatted []string) ([]segment.FormatSegment, error) {
	matcher := difflib.NewMatcher(patch, formatted)
	var segs []segment.FormatSegment
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		var (
			seg segment.Segment
			err error
		)
		if op.Tag == 'i' {
			// op.I1 lines precede the insertion, so the content goes
			// after 1-based line op.I1.
			seg, err = segment.NewInsertPoint(op.I1)
		} else {
			seg, err = segment.NewRange(op.I1+1, op.I2)
		}
		if err != nil {
			return nil, err
		}
		var content []string
		if op.J2 > op.J1 {
			content = formatted[op.J1:op.J2]
		}
		fs, err := segment.NewFormatSegment(seg, content)
		if err != nil {
			return nil, err
		}
		segs = append(segs, fs)
	}
	return segs, nil
}

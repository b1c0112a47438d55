// Package segment holds the line-range value types the reformat pipeline is
// built on: a Segment marks a contiguous 1-based inclusive range (or a bare
// insertion point) in a file, and a FormatSegment pairs a range with the
// replacement lines the formatter produced for it.
package segment

import "fmt"

// Segment is a contiguous range of lines in a file, 1-based and inclusive:
// start 3 and end 5 covers lines 3, 4 and 5. An End of 0 means the segment
// has no end point and marks an insertion point at Start instead of a range.
type Segment struct {
	Start int
	End   int
}

// NewRange returns a segment spanning start through end, inclusive.
func NewRange(start, end int) (Segment, error) {
	if start < 1 {
		return Segment{}, fmt.Errorf("segment start must be 1 or higher, got %d", start)
	}
	if end < 1 {
		return Segment{}, fmt.Errorf("segment end must be 1 or higher, got %d", end)
	}
	if end < start {
		return Segment{}, fmt.Errorf("segment end %d before start %d", end, start)
	}
	return Segment{Start: start, End: end}, nil
}

// NewInsertPoint returns a segment that marks an insertion point at start.
func NewInsertPoint(start int) (Segment, error) {
	if start < 1 {
		return Segment{}, fmt.Errorf("segment start must be 1 or higher, got %d", start)
	}
	return Segment{Start: start}, nil
}

// IsPoint reports whether the segment is an insertion point rather than a
// range.
func (s Segment) IsPoint() bool {
	return s.End == 0
}

// FormatRange renders the segment as "start:end" for the formatter's range
// flag. Insertion points have no end and cannot be rendered as a range.
func (s Segment) FormatRange() (string, error) {
	if s.IsPoint() {
		return "", fmt.Errorf("segment at line %d has no end point and is not a range", s.Start)
	}
	return fmt.Sprintf("%d:%d", s.Start, s.End), nil
}

// ReformatType classifies what a FormatSegment does to the original lines.
type ReformatType int

const (
	// Insertion adds Content after line Start; no original lines are touched.
	Insertion ReformatType = iota
	// Modification replaces lines Start through End with Content. The
	// replacement may have a different number of lines than the range.
	Modification
	// Deletion removes lines Start through End.
	Deletion
)

func (t ReformatType) String() string {
	switch t {
	case Insertion:
		return "insertion"
	case Modification:
		return "modification"
	case Deletion:
		return "deletion"
	}
	return fmt.Sprintf("ReformatType(%d)", int(t))
}

// FormatSegment is one reformat suggestion: a range (or insertion point) in
// the original content plus the replacement lines. The variant is derived
// from the shape at construction and stored in Type.
type FormatSegment struct {
	Segment
	Type    ReformatType
	Content []string
}

// NewFormatSegment builds a reformat segment from a range and its
// replacement lines. An insertion point with no content is invalid: there
// would be nothing to insert.
func NewFormatSegment(seg Segment, content []string) (FormatSegment, error) {
	fs := FormatSegment{Segment: seg, Content: content}
	switch {
	case seg.IsPoint():
		if len(content) == 0 {
			return FormatSegment{}, fmt.Errorf("insertion at line %d has no content", seg.Start)
		}
		fs.Type = Insertion
	case len(content) == 0:
		fs.Type = Deletion
	default:
		fs.Type = Modification
	}
	return fs, nil
}

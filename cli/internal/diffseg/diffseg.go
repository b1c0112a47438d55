// Package diffseg parses unified-diff text into per-file line spans. The
// input can be `git diff` output or any other unified diff; only the file
// headers and hunk headers are read.
package diffseg

import (
	"bufio"
	"io"
	"regexp"
	"strconv"

	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

var (
	// "+++ b/src/Foo.cpp" or "+++ formatted/file"; the first path component
	// is stripped.
	filenamePattern = regexp.MustCompile(`^\+\+\+ (?:.*?/)(\S*)`)
	hunkPattern     = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))?`)
)

// Span is one hunk's line coverage on both sides of a diff. Line numbers are
// 1-based and inclusive. AEnd is 0 when the hunk only adds lines (AStart is
// then the line the addition follows); BEnd is 0 when the hunk only removes
// lines.
type Span struct {
	AStart int
	AEnd   int
	BStart int
	BEnd   int
}

// FileSpans groups the spans of one file, in diff order.
type FileSpans struct {
	Filename string
	Spans    []Span
}

// Parse reads unified-diff text and returns the hunk spans per file, in the
// order the files appear. Hunks seen before any "+++" header are dropped.
// A diff without recognizable headers yields an empty result, not an error.
func Parse(r io.Reader) ([]FileSpans, error) {
	var (
		files   []FileSpans
		byName  = make(map[string]int)
		current = -1
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if m := filenamePattern.FindStringSubmatch(line); m != nil {
			name := m[1]
			idx, ok := byName[name]
			if !ok {
				idx = len(files)
				files = append(files, FileSpans{Filename: name})
				byName[name] = idx
			}
			current = idx
			continue
		}
		if current < 0 {
			continue
		}
		m := hunkPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		files[current].Spans = append(files[current].Spans, spanFromHunk(m))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// spanFromHunk converts a matched hunk header into a Span. A missing count
// means 1; a count of 0 leaves that side without an end point.
func spanFromHunk(m []string) Span {
	var s Span
	s.AStart = atoi(m[1])
	if count, ok := optionalCount(m[2]); !ok || count != 0 {
		s.AEnd = s.AStart
		if ok {
			s.AEnd += count - 1
		}
	}
	s.BStart = atoi(m[3])
	if count, ok := optionalCount(m[4]); !ok || count != 0 {
		s.BEnd = s.BStart
		if ok {
			s.BEnd += count - 1
		}
	}
	return s
}

// atoi converts a submatch to an int. The regexp only captures digit runs,
// so conversion cannot fail.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func optionalCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	return atoi(s), true
}

// PatchSegments converts the patched-side coverage of spans into formatter
// target ranges. Hunks that only remove lines leave nothing to format in the
// patched file and are dropped.
func PatchSegments(spans []Span) ([]segment.Segment, error) {
	var segs []segment.Segment
	for _, s := range spans {
		if s.BEnd == 0 {
			continue
		}
		seg, err := segment.NewRange(s.BStart, s.BEnd)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

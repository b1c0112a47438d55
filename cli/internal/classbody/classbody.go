// Package classbody flags the lines of a file that sit inside a top-level
// class or struct body. The formatter's output in those regions is not
// trusted, so review comments touching them get suppressed.
//
// The scan is purely lexical: braces are counted per line with no awareness
// of comments or string literals, and only declarations starting at column 0
// are recognized. Nested classes are not detected. These imprecisions are
// deliberate; the scan targets the formatter's known blind spots, it is not
// a parser.
package classbody

import (
	"regexp"
	"strings"
)

var (
	// A forward declaration or a one-line definition ending in ';' never
	// opens a body.
	declarationPattern = regexp.MustCompile(`^(?:class|struct) .*;$`)
	definitionPattern  = regexp.MustCompile(`^(?:class|struct) .*$`)
)

// Lines returns the 1-based numbers of the lines inside a top-level class or
// struct body, in ascending order. The line that opens the definition and the
// line where the brace level returns to zero are not included; the formatter
// stays responsible for those.
func Lines(contents []string) []int {
	if len(contents) == 0 {
		return nil
	}
	var skip []int
	inClass := false
	level := 0
	for i, line := range contents {
		lineno := i + 1
		if !inClass {
			if declarationPattern.MatchString(line) {
				continue
			}
			if definitionPattern.MatchString(line) {
				inClass = true
				level += strings.Count(line, "{")
				level -= strings.Count(line, "}")
			}
			continue
		}
		level += strings.Count(line, "{")
		level -= strings.Count(line, "}")
		if level == 0 {
			inClass = false
			continue
		}
		skip = append(skip, lineno)
	}
	return skip
}

// Package review turns reformat segments into the review payload: one
// positioned comment per surviving segment plus an aggregate message and a
// Haiku-Format vote. Segments that touch a top-level class or struct body
// are dropped here, with a warning, because the formatter's layout of class
// contents is not trusted yet.
package review

import (
	"fmt"
	"strings"

	"github.com/haiku/haiku-format-bot/cli/internal/change"
	"github.com/haiku/haiku-format-bot/cli/internal/classbody"
	"github.com/haiku/haiku-format-bot/cli/internal/gerrit"
	"github.com/haiku/haiku-format-bot/cli/internal/reformat"
	"github.com/haiku/haiku-format-bot/cli/internal/report"
	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

const labelName = "Haiku-Format"

const (
	messageNoChanges = "Experimental `haiku-format` bot: no formatting changes suggested for this commit."

	messageChangesSuggested = "Experimental `haiku-format` bot: some formatting changes suggested.\n" +
		"Note that this bot is experimental and the suggestions may not be correct. " +
		"There is a known issue with changes in header files: `haiku-format` does not yet " +
		"correctly output the column layout of the contents of classes.\n\n" +
		"You can see and apply the suggestions by running `haiku-format` in your local " +
		"repository. For example, if in your local checkout this change is applied to a local checkout, " +
		"you can use the following command to automatically reformat:\n```\ngit-haiku-format HEAD~\n```"

	messageRemoveLines = "Suggestion from `haiku-format` is to remove this line/these lines."
)

// Options selects payload conventions that depend on the target server.
type Options struct {
	// RangeEndExclusive emits comment ranges ending at character 0 of the
	// line after the segment, as the Gerrit documentation describes.
	// Gerrit 3.7.1 has been observed to highlight the end line's content
	// anyway, so the default keeps the end line at the segment's last
	// line.
	RangeEndExclusive bool
}

// Build converts the formatting results of a change into a ReviewInput. The
// vote is +1 when no comments survive and -1 otherwise; the change owner is
// always notified.
func Build(ch change.Change, results reformat.Result, log *report.Logger, opts Options) gerrit.ReviewInput {
	comments := make(map[string][]gerrit.CommentInput)
	for _, f := range ch.Files {
		res := results[f.Filename]
		if res == nil || res.Formatted == nil || len(res.Segments) == 0 {
			continue
		}
		skip := skipSet(classbody.Lines(f.Patch))
		for _, seg := range res.Segments {
			end := seg.End
			var operation string
			switch seg.Type {
			case segment.Insertion:
				// An insertion has no span of its own; anchor the
				// comment on the line it follows.
				end = seg.Start
				operation = "insert after"
			case segment.Modification:
				operation = "change"
			}
			lines := segmentLines(seg.Start, end)
			if overlaps(lines, skip) {
				log.Warnf("Class Workaround: [%s] skipped lines %v", f.Filename, lines)
				continue
			}
			if opts.RangeEndExclusive {
				end++
			}
			comment := gerrit.CommentInput{
				Message: segmentMessage(seg, operation),
				Range:   &gerrit.CommentRange{StartLine: seg.Start, EndLine: end},
			}
			comments[f.Filename] = append(comments[f.Filename], comment)
		}
	}

	if len(comments) == 0 {
		return gerrit.ReviewInput{
			Message: messageNoChanges,
			Labels:  map[string]int{labelName: 1},
			Notify:  gerrit.NotifyOwner,
		}
	}
	return gerrit.ReviewInput{
		Message:  messageChangesSuggested,
		Labels:   map[string]int{labelName: -1},
		Comments: comments,
		Notify:   gerrit.NotifyOwner,
	}
}

func segmentMessage(seg segment.FormatSegment, operation string) string {
	if seg.Type == segment.Deletion {
		return messageRemoveLines
	}
	content := strings.Join(seg.Content, "\n") + "\n"
	return fmt.Sprintf("Suggestion from `haiku-format` (%s):\n```c++\n%s```", operation, content)
}

func skipSet(lines []int) map[int]bool {
	set := make(map[int]bool, len(lines))
	for _, n := range lines {
		set[n] = true
	}
	return set
}

// segmentLines expands an inclusive line range into the individual numbers
// the overlap check and the warning need.
func segmentLines(start, end int) []int {
	lines := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		lines = append(lines, n)
	}
	return lines
}

func overlaps(lines []int, skip map[int]bool) bool {
	for _, n := range lines {
		if skip[n] {
			return true
		}
	}
	return false
}

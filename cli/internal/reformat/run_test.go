package reformat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/haiku/haiku-format-bot/cli/internal/change"
	"github.com/haiku/haiku-format-bot/cli/internal/report"
	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

type fakeCall struct {
	lines  []string
	ranges []segment.Segment
}

// fakeRunner records every Format call and answers via fn, or with "no
// changes" when fn is nil.
type fakeRunner struct {
	calls []fakeCall
	fn    func(lines []string, ranges []segment.Segment) ([]string, error)
}

func (r *fakeRunner) Format(_ context.Context, lines []string, ranges []segment.Segment) ([]string, error) {
	r.calls = append(r.calls, fakeCall{lines: lines, ranges: ranges})
	if r.fn == nil {
		return nil, nil
	}
	return r.fn(lines, ranges)
}

func mustFile(t *testing.T, name string, base, patch []string) change.File {
	t.Helper()
	f, err := change.NewFile(name, base, patch)
	if err != nil {
		t.Fatalf("NewFile(%s) error: %v", name, err)
	}
	return f
}

func TestSupported(t *testing.T) {
	t.Parallel()
	tests := []struct {
		filename string
		want     bool
	}{
		{"src/kits/app/Message.cpp", true},
		{"src/kits/app/Message.CPP", true},
		{"headers/os/app/Message.h", true},
		{"module.cppm", true},
		{"shader.cl", true},
		{"driver.sv", true},
		{"driver.svh", true},
		{"driver.vh", true},
		{"data.json", true},
		{"Jamfile", false},
		{"ReadMe.md", false},
		{"configure", false},
		{"script.sh", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.filename); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestRun_skipsFilesWithoutInvokingFormatter(t *testing.T) {
	t.Parallel()
	files := []change.File{
		mustFile(t, "Jamfile", []string{"SubDir ;"}, []string{"SubDir HAIKU_TOP ;"}),
		mustFile(t, "removed.cpp", []string{"int x;"}, nil),
		mustFile(t, "shrunk.cpp", []string{"int x;", "int y;"}, []string{"int x;"}),
	}
	runner := &fakeRunner{}
	var buf bytes.Buffer
	res, err := Run(context.Background(), change.Change{ID: "I1", Files: files}, runner, report.New(&buf))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("formatter invoked %d time(s), want 0", len(runner.calls))
	}
	if len(res) != 0 {
		t.Errorf("Run() produced %d result(s), want 0", len(res))
	}
	log := buf.String()
	for _, want := range []string{
		"Ignoring Jamfile because it does not seem to be a file that `clang-format` can handle",
		"Skipping removed.cpp because the file is deleted in the patch",
		"Skipping shrunk.cpp because the changes in the patch are only deletions",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q; got:\n%s", want, log)
		}
	}
}

func TestRun_newFileFormatsWholeFile(t *testing.T) {
	t.Parallel()
	files := []change.File{
		mustFile(t, "new.cpp", nil, []string{"int main(){return 0;}"}),
	}
	runner := &fakeRunner{}
	res, err := Run(context.Background(), change.Change{ID: "I1", Files: files}, runner, report.New(nil))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("formatter invoked %d time(s), want 1", len(runner.calls))
	}
	if got := runner.calls[0].ranges; len(got) != 0 {
		t.Errorf("formatter invoked with ranges %v, want none (whole file)", got)
	}
	if res["new.cpp"] == nil || res["new.cpp"].Formatted != nil {
		t.Errorf("result = %+v, want entry with nil Formatted", res["new.cpp"])
	}
}

func TestRun_modifiedFileFormatsPatchedRangesOnly(t *testing.T) {
	t.Parallel()
	base := []string{"int x;", "int y;", "int z;"}
	patch := []string{"int x;", "int  y ;", "int z;"}
	files := []change.File{mustFile(t, "vars.cpp", base, patch)}
	runner := &fakeRunner{fn: func(lines []string, _ []segment.Segment) ([]string, error) {
		out := append([]string(nil), lines...)
		out[1] = "int y;"
		return out, nil
	}}
	var buf bytes.Buffer
	res, err := Run(context.Background(), change.Change{ID: "I1", Files: files}, runner, report.New(&buf))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("formatter invoked %d time(s), want 1", len(runner.calls))
	}
	ranges := runner.calls[0].ranges
	if len(ranges) != 1 || ranges[0].Start != 2 || ranges[0].End != 2 {
		t.Errorf("formatter ranges = %v, want [2:2]", ranges)
	}
	fr := res["vars.cpp"]
	if fr == nil {
		t.Fatal("no result for vars.cpp")
	}
	if len(fr.Segments) != 1 || fr.Segments[0].Type != segment.Modification {
		t.Errorf("Segments = %+v, want one modification", fr.Segments)
	}
	if !strings.Contains(buf.String(), "vars.cpp: 1 segment(s) reformatted") {
		t.Errorf("log missing reformat count; got:\n%s", buf.String())
	}
}

func TestRun_noChangesRecordsNilFormatted(t *testing.T) {
	t.Parallel()
	files := []change.File{
		mustFile(t, "ok.cpp", []string{"int x;"}, []string{"int x;", "int y;"}),
	}
	runner := &fakeRunner{}
	var buf bytes.Buffer
	res, err := Run(context.Background(), change.Change{ID: "I1", Files: files}, runner, report.New(&buf))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	fr := res["ok.cpp"]
	if fr == nil || fr.Formatted != nil || len(fr.Segments) != 0 {
		t.Errorf("result = %+v, want entry with no formatted content", fr)
	}
	if !strings.Contains(buf.String(), "ok.cpp: no reformats") {
		t.Errorf("log missing no-reformats line; got:\n%s", buf.String())
	}
}

func TestRun_formatterFailureAbortsRun(t *testing.T) {
	t.Parallel()
	files := []change.File{
		mustFile(t, "a.cpp", nil, []string{"int a;"}),
		mustFile(t, "b.cpp", nil, []string{"int b;"}),
	}
	boom := errors.New("formatter exploded")
	runner := &fakeRunner{fn: func([]string, []segment.Segment) ([]string, error) {
		return nil, boom
	}}
	res, err := Run(context.Background(), change.Change{ID: "I1", Files: files}, runner, report.New(nil))
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want the formatter error", err)
	}
	if res != nil {
		t.Errorf("Run() result = %v, want nil after failure", res)
	}
	if len(runner.calls) != 1 {
		t.Errorf("formatter invoked %d time(s), want 1 (no per-file isolation)", len(runner.calls))
	}
}

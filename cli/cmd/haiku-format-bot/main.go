package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haiku/haiku-format-bot/cli/internal/change"
	"github.com/haiku/haiku-format-bot/cli/internal/clangformat"
	"github.com/haiku/haiku-format-bot/cli/internal/config"
	"github.com/haiku/haiku-format-bot/cli/internal/diffseg"
	"github.com/haiku/haiku-format-bot/cli/internal/erruser"
	"github.com/haiku/haiku-format-bot/cli/internal/gerrit"
	"github.com/haiku/haiku-format-bot/cli/internal/reformat"
	"github.com/haiku/haiku-format-bot/cli/internal/report"
	"github.com/haiku/haiku-format-bot/cli/internal/review"
	"github.com/haiku/haiku-format-bot/cli/internal/segment"
	"github.com/haiku/haiku-format-bot/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

// stdout is the writer for command output. Tests may replace it to capture output.
var stdout io.Writer = os.Stdout

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI. It is exported for testing.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	rootCmd := &cobra.Command{
		Use:     "haiku-format-bot",
		Short:   "Audit the formatting of Gerrit changes with clang-format",
		Version: version.String(),
	}
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(os.Stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

// addConfigFlags registers the flags that override configuration values.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Gerrit base URL (overrides config and env)")
	cmd.Flags().String("format-command", "", "Formatter binary to run (overrides config and env)")
	cmd.Flags().Duration("timeout", 0, "HTTP timeout for Gerrit requests (overrides config and env)")
}

// overridesFromFlags returns Overrides for the config flags that were set.
// Commands register different subsets, so every lookup tolerates a missing flag.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	urlChanged := cmd.Flags().Lookup("url") != nil && cmd.Flags().Lookup("url").Changed
	formatChanged := cmd.Flags().Lookup("format-command") != nil && cmd.Flags().Lookup("format-command").Changed
	timeoutChanged := cmd.Flags().Lookup("timeout") != nil && cmd.Flags().Lookup("timeout").Changed
	if !urlChanged && !formatChanged && !timeoutChanged {
		return nil
	}
	o := &config.Overrides{}
	if urlChanged {
		v, _ := cmd.Flags().GetString("url")
		o.GerritURL = &v
	}
	if formatChanged {
		v, _ := cmd.Flags().GetString("format-command")
		o.FormatCommand = &v
	}
	if timeoutChanged {
		v, _ := cmd.Flags().GetDuration("timeout")
		o.Timeout = &v
	}
	return o
}

// progressLogger returns the logger for command progress, or a no-op logger
// when --quiet is set.
func progressLogger(cmd *cobra.Command) *report.Logger {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return report.New(nil)
	}
	return report.New(os.Stderr)
}

// gerritExit maps transport failures to exit code 2 with a hint on stderr.
// Other errors pass through for the normal error printing in runCLI.
func gerritExit(err error, baseURL string) error {
	if errors.Is(err, gerrit.ErrUnreachable) {
		fmt.Fprintf(os.Stderr, "Gerrit unreachable at %s. Check the URL and your network.\n", baseURL)
		fmt.Fprintf(os.Stderr, "Details: %v\n", err)
		return errExit(2)
	}
	return err
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <change>",
		Short: "Audit a Gerrit change and prepare a formatting review",
		Long: `Fetch the files touched by a Gerrit change, run the formatter over the
changed line ranges, and turn the differences into review comments with a
Haiku-Format vote. The change argument is a change number (resolved through
the server) or a full change ID used verbatim.

Without --submit the review payload is written to the --output file so it
can be inspected and posted manually.`,
		RunE: runCheck,
	}
	cmd.Flags().String("revision", "current", "Revision to audit (a revision ID, or \"current\")")
	cmd.Flags().Bool("submit", false, "Post the review to Gerrit instead of writing it to a file")
	cmd.Flags().String("output", "review.json", "Path for the review payload when not submitting")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
	addConfigFlags(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("check requires a change number or change ID (e.g. haiku-format-bot check 4711)")
	}
	changeArg := args[0]
	revision, _ := cmd.Flags().GetString("revision")
	submit, _ := cmd.Flags().GetBool("submit")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load(cmd.Context(), config.LoadOptions{Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	log := progressLogger(cmd)

	gctx := gerrit.NewContext(cfg.GerritURL, &http.Client{Timeout: cfg.Timeout})
	if cfg.GerritUser != "" {
		gctx.SetBasicAuth(cfg.GerritUser, cfg.GerritPassword)
	}

	changeID := changeArg
	revisionID := revision
	if number, convErr := strconv.Atoi(changeArg); convErr == nil {
		var currentRevision string
		changeID, currentRevision, err = gctx.ChangeFromNumber(cmd.Context(), number)
		if err != nil {
			return gerritExit(err, cfg.GerritURL)
		}
		if !cmd.Flags().Lookup("revision").Changed {
			revisionID = currentRevision
		}
	}

	log.Infof("Fetching change details for %s", changeID)
	ch, err := gctx.FetchChange(cmd.Context(), changeID, revisionID)
	if err != nil {
		return gerritExit(err, cfg.GerritURL)
	}

	runner := clangformat.New(cfg.FormatCommand)
	results, err := reformat.Run(cmd.Context(), *ch, runner, log)
	if err != nil {
		return err
	}
	input := review.Build(*ch, results, log, review.Options{RangeEndExclusive: cfg.RangeEndExclusive})

	if submit {
		if err := gctx.PublishReview(cmd.Context(), changeID, revisionID, input); err != nil {
			return gerritExit(err, cfg.GerritURL)
		}
		log.Infof("The review has been submitted to Gerrit")
		return nil
	}

	data, err := json.MarshalIndent(input, "", "    ")
	if err != nil {
		return erruser.New("Could not encode the review.", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(output, data, 0644); err != nil {
		return erruser.New(fmt.Sprintf("Could not write the review to %s.", output), err)
	}
	log.Infof("The review has been written to %s", output)
	log.Infof("POST the contents of %s to: /a/changes/%s/revisions/%s/review", output, changeID, revisionID)
	return nil
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [patchfile]",
		Short: "Suggest reformats for the files touched by a local patch",
		Long: `Read a unified diff from the patch file (or stdin), run the formatter
over the touched line ranges of the files on disk, and print the suggested
reformats. Files the formatter does not handle are ignored.`,
		RunE: runDiff,
	}
	cmd.Flags().String("dir", ".", "Directory the patch paths are relative to")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
	cmd.Flags().String("format-command", "", "Formatter binary to run (overrides config and env)")
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load(cmd.Context(), config.LoadOptions{Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	log := progressLogger(cmd)

	patch := io.Reader(os.Stdin)
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return erruser.New(fmt.Sprintf("Could not open the patch file %s.", args[0]), err)
		}
		defer f.Close()
		patch = f
	}
	files, err := diffseg.Parse(patch)
	if err != nil {
		return err
	}

	runner := clangformat.New(cfg.FormatCommand)
	suggestions := 0
	for _, fs := range files {
		if !reformat.Supported(fs.Filename) {
			log.Infof("Ignoring %s because it does not seem to be a file that `clang-format` can handle", fs.Filename)
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, fs.Filename))
		if err != nil {
			log.Warnf("Skipping %s because it cannot be read: %v", fs.Filename, err)
			continue
		}
		ranges, err := diffseg.PatchSegments(fs.Spans)
		if err != nil {
			return err
		}
		if len(ranges) == 0 {
			log.Infof("Skipping %s because the changes in the patch are only deletions", fs.Filename)
			continue
		}
		lines := change.SplitLines(string(data))
		formatted, err := runner.Format(cmd.Context(), lines, ranges)
		if err != nil {
			return err
		}
		if formatted == nil {
			log.Infof("%s: no reformats", fs.Filename)
			continue
		}
		segs, err := reformat.Reduce(lines, formatted)
		if err != nil {
			return err
		}
		for _, seg := range segs {
			if err := printSegment(stdout, fs.Filename, seg); err != nil {
				return err
			}
			suggestions++
		}
	}
	if suggestions == 0 {
		fmt.Fprintln(stdout, "No formatting changes suggested.")
	}
	return nil
}

// printSegment writes one reformat suggestion to w.
func printSegment(w io.Writer, filename string, seg segment.FormatSegment) error {
	switch seg.Type {
	case segment.Insertion:
		if _, err := fmt.Fprintf(w, "%s: insert after line %d:\n", filename, seg.Start); err != nil {
			return err
		}
	case segment.Deletion:
		lines, err := seg.FormatRange()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s: remove lines %s\n", filename, lines)
		return err
	default:
		lines, err := seg.FormatRange()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: change lines %s to:\n", filename, lines); err != nil {
			return err
		}
	}
	for _, line := range seg.Content {
		if _, err := fmt.Fprintf(w, "\t%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the Gerrit server and the formatter binary",
		RunE:  runDoctor,
	}
	addConfigFlags(cmd)
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context(), config.LoadOptions{Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	gctx := gerrit.NewContext(cfg.GerritURL, &http.Client{Timeout: cfg.Timeout})
	if err := gctx.Check(cmd.Context()); err != nil {
		if errors.Is(err, gerrit.ErrUnreachable) {
			fmt.Fprintf(os.Stderr, "Gerrit unreachable at %s. Check the URL and your network.\n", cfg.GerritURL)
			fmt.Fprintf(os.Stderr, "Details: %v\n", err)
			return errExit(2)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		return errExit(1)
	}
	fmt.Fprintln(stdout, "Gerrit OK")
	path, err := exec.LookPath(cfg.FormatCommand)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Formatter %q not found in PATH.\n", cfg.FormatCommand)
		return errExit(1)
	}
	fmt.Fprintf(stdout, "Formatter: %s\n", path)
	return nil
}

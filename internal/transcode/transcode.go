// Package transcode runs an external transcoder over every matching file in a directory.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/alessio/shellescape"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCommand     = "ffmpeg -y -loglevel error -i {{.Input}} {{.Output}}"
	DefaultConcurrency = 2
)

var (
	ErrNoCommand = errors.New("no conversion command")
)

// CommandError describes one failed invocation of the transcoder.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Command, e.Err, output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// A Job describes one directory conversion.
type Job struct {
	InputDir  string
	OutputDir string
	// SourceExt selects input files by suffix, e.g. ".mp4".
	SourceExt string
	// TargetExt replaces the source extension in output names, e.g. ".mp3".
	TargetExt string
}

// Result is the outcome of converting one file.
type Result struct {
	Input  string
	Output string
	Err    error
}

// Report lists the outcome of every conversion of a Job, in input order.
type Report struct {
	Results []Result
}

func (r *Report) Succeeded() []Result {
	return r.filter(func(res Result) bool { return res.Err == nil })
}

func (r *Report) Failed() []Result {
	return r.filter(func(res Result) bool { return res.Err != nil })
}

// Err combines the errors of all failed conversions, or returns nil if there were none.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Failed() {
		result = multierror.Append(result, fmt.Errorf("%s: %w", res.Input, res.Err))
	}
	return result.ErrorOrNil()
}

func (r *Report) filter(keep func(Result) bool) []Result {
	var results []Result
	for _, res := range r.Results {
		if keep(res) {
			results = append(results, res)
		}
	}
	return results
}

type templateArgs struct {
	Input  string
	Output string
}

// Converter invokes a templated shell command once per input file. The template sees {{.Input}} and {{.Output}},
// already quoted for the shell.
type Converter struct {
	command     *template.Template
	concurrency int
	shell       []string
	log         *zap.SugaredLogger
}

func NewConverter(command string, concurrency int) (*Converter, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}
	t, err := template.New("command").Option("missingkey=error").Parse(command)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion command: %w", err)
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Converter{
		command:     t,
		concurrency: concurrency,
		shell:       []string{"sh", "-c"},
		log:         zap.S().Named("transcode"),
	}, nil
}

// Command renders the command line for one conversion.
func (c *Converter) Command(input string, output string) (string, error) {
	builder := strings.Builder{}
	args := templateArgs{Input: shellescape.Quote(input), Output: shellescape.Quote(output)}
	if err := c.command.Execute(&builder, &args); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// Convert runs the command for every file in job.InputDir ending in job.SourceExt, at most concurrency at a time, and
// waits for all of them. A non-nil error means the job could not be started at all; individual failures are only
// recorded in the Report.
func (c *Converter) Convert(ctx context.Context, job Job) (*Report, error) {
	inputs, err := listInputs(job.InputDir, job.SourceExt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	report := &Report{Results: make([]Result, len(inputs))}
	commands := make([]string, len(inputs))
	for i, name := range inputs {
		input := filepath.Join(job.InputDir, name)
		output := filepath.Join(job.OutputDir, strings.TrimSuffix(name, filepath.Ext(name))+job.TargetExt)
		if commands[i], err = c.Command(input, output); err != nil {
			return nil, fmt.Errorf("invalid conversion command: %w", err)
		}
		report.Results[i] = Result{Input: input, Output: output}
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range inputs {
		i := i
		g.Go(func() error {
			res := &report.Results[i]
			c.log.Debugf("Converting %s -> %s", res.Input, res.Output)
			res.Err = c.run(ctx, commands[i])
			if res.Err != nil {
				c.log.Warnf("Conversion of %s failed: %v", res.Input, res.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	c.log.Infof("Converted %d of %d %s files to %s", len(report.Succeeded()), len(inputs), job.SourceExt, job.TargetExt)
	return report, nil
}

func (c *Converter) run(ctx context.Context, command string) error {
	args := append(append([]string(nil), c.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, c.shell[0], args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &CommandError{Command: command, ExitCode: exitCode, Output: string(output), Err: err}
}

func listInputs(dir string, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.HasSuffix(entry.Name(), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/hashicorp/go-hclog"
	"github.com/lithammer/shortuuid/v4"

	"github.com/ffget/media-converter/internal/model"
)

// Executable and probe constants
const (
	DefaultFFmpegBin  = "ffmpeg"
	DefaultFFprobeBin = "ffprobe"

	ffprobeLogLevel     = "error"
	ffprobeShowEntries  = "format=duration"
	ffprobeOutputFormat = "csv=p=0"

	// killGraceDelay bounds how long a cancelled process may keep
	// running after it has been asked to quit.
	killGraceDelay = 10 * time.Second
)

// Sink receives progress from a running invocation. Percentages are
// integers in 0..100; ProcessStarted is called once, the instant the
// external process has been spawned, before any Progress call.
type Sink interface {
	Progress(percent int)
	ProcessStarted(p *Process)
}

// Options configures a Runner
type Options struct {
	FFmpegBin  string
	FFprobeBin string
	// ExtraArgs is an optional ffmpeg argument string, split without a
	// shell so metacharacters are never interpreted
	ExtraArgs string
	Gate      *ResourceGate
	Logger    hclog.Logger
}

// Runner invokes the external ffmpeg/ffprobe binaries
type Runner struct {
	bin       string
	probeBin  string
	extraArgs []string
	gate      *ResourceGate
	log       hclog.Logger
}

// NewRunner validates the configured binaries and prepares a runner
func NewRunner(opts Options) (*Runner, error) {
	bin := opts.FFmpegBin
	if bin == "" {
		bin = DefaultFFmpegBin
	}
	probeBin := opts.FFprobeBin
	if probeBin == "" {
		probeBin = DefaultFFprobeBin
	}

	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found: %s", bin)
	}
	if _, err := exec.LookPath(probeBin); err != nil {
		return nil, fmt.Errorf("ffprobe binary not found: %s", probeBin)
	}

	extra, err := shlex.Split(opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid extra ffmpeg arguments: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	return &Runner{
		bin:       bin,
		probeBin:  probeBin,
		extraArgs: extra,
		gate:      opts.Gate,
		log:       log,
	}, nil
}

// Convert transcodes input into output, inferring the target container
// from the output extension. Progress percentages and the spawned
// process handle are delivered to sink.
func (r *Runner) Convert(ctx context.Context, sink Sink, input, output string) error {
	if r.gate != nil {
		if err := r.gate.Check(filepath.Dir(output)); err != nil {
			return fmt.Errorf("refusing to start conversion: %w", err)
		}
	}

	total, err := r.Duration(ctx, input)
	if err != nil {
		// Progress degrades to start/end only; the conversion itself
		// does not depend on knowing the duration.
		r.log.Warn("could not probe input duration", "input", input, "error", err)
		total = 0
	}

	args := r.convertArgs(input, output)
	return r.run(ctx, sink, args, total)
}

// Crop trims input to the given range and writes the result to output.
// input and output may be the same path; the trim then happens through
// a sibling temp file that replaces output on success.
func (r *Runner) Crop(ctx context.Context, sink Sink, input, output string, span model.TimeRange) error {
	if !span.HasStart() {
		return nil
	}

	total, err := r.Duration(ctx, input)
	if err != nil {
		r.log.Warn("could not probe input duration", "input", input, "error", err)
		total = 0
	}

	target := output
	inPlace := sameFile(input, output)
	if inPlace {
		target = cropTempPath(output)
	}

	args := r.cropArgs(input, target, span)
	if err := r.run(ctx, sink, args, span.CroppedLength(total)); err != nil {
		if inPlace {
			os.Remove(target)
		}
		return err
	}

	if inPlace {
		if err := os.Rename(target, output); err != nil {
			os.Remove(target)
			return fmt.Errorf("could not replace output with cropped file: %w", err)
		}
	}
	return nil
}

// Duration probes the media duration of a file with ffprobe
func (r *Runner) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, r.probeBin,
		"-v", ffprobeLogLevel,
		"-show_entries", ffprobeShowEntries,
		"-of", ffprobeOutputFormat,
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// convertArgs builds the argument list for a conversion run
func (r *Runner) convertArgs(input, output string) []string {
	args := []string{"-y", "-i", input}
	args = append(args, r.extraArgs...)
	args = append(args,
		"-progress", ProgressPipeTarget,
		"-nostats",
		output)
	return args
}

// cropArgs builds the argument list for a trim run. Streams are copied
// rather than re-encoded.
func (r *Runner) cropArgs(input, output string, span model.TimeRange) []string {
	args := []string{"-y", "-ss", span.Start.String()}
	if span.HasEnd() {
		args = append(args, "-to", span.End.String())
	}
	args = append(args,
		"-i", input,
		"-c", "copy",
		"-progress", ProgressPipeTarget,
		"-nostats",
		output)
	return args
}

// run spawns ffmpeg, hands the process to the sink, streams progress
// from stderr and waits for completion.
func (r *Runner) run(ctx context.Context, sink Sink, args []string, total time.Duration) error {
	cmd := exec.CommandContext(ctx, r.bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	r.log.Debug("executing", "bin", r.bin, "args", strings.Join(args, " "))

	proc := &Process{cmd: cmd, stdin: stdin}
	// Context cancellation requests a graceful quit; the process is
	// killed only if it ignores the request for too long.
	cmd.Cancel = proc.Quit
	cmd.WaitDelay = killGraceDelay

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	sink.ProcessStarted(proc)
	sink.Progress(0)

	watcher := newProgressWatcher(sink, total)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		watcher.consume(stderr)
	}()

	// The pipe must be fully drained before Wait reaps the process
	<-drained
	werr := cmd.Wait()
	proc.markExited()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if werr != nil {
		if tail := watcher.output(); tail != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", werr, tail)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", werr)
	}
	return nil
}

// cropTempPath derives a unique sibling path for in-place cropping,
// preserving the extension so ffmpeg can infer the container.
func cropTempPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-crop-%s%s", base, shortuuid.New(), ext)
}

func sameFile(a, b string) bool {
	ca, err := filepath.Abs(filepath.Clean(a))
	if err != nil {
		return a == b
	}
	cb, err := filepath.Abs(filepath.Clean(b))
	if err != nil {
		return a == b
	}
	return ca == cb
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/ffget/media-converter/internal/config"
	"github.com/ffget/media-converter/internal/diag"
	"github.com/ffget/media-converter/internal/ffmpeg"
	"github.com/ffget/media-converter/internal/model"
	"github.com/ffget/media-converter/internal/operation"
	"github.com/ffget/media-converter/internal/platform"
	"github.com/ffget/media-converter/internal/registry"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath string
		output  string
		from    string
		to      string
		reveal  bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to a config file")
	flag.StringVar(&output, "o", "", "output file; derived from the input when empty")
	flag.StringVar(&from, "from", "", "crop start position, HH:MM:SS.mmm")
	flag.StringVar(&to, "to", "", "crop end position, HH:MM:SS.mmm; requires -from")
	flag.BoolVar(&reveal, "reveal", false, "reveal the output in the file manager on success")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "media-converter v%s\nusage: media-converter [flags] <input>\n", version)
		flag.PrintDefaults()
		return 2
	}
	input := flag.Arg(0)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "media-converter",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	sink := diag.New(logger)

	span, err := parseSpan(from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	var gate *ffmpeg.ResourceGate
	if cfg.ThrottleCPU > 0 || cfg.ThrottleFreeMem > 0 || cfg.ThrottleFreeDisk > 0 {
		gate = &ffmpeg.ResourceGate{
			MinIdleCPU:  cfg.ThrottleCPU,
			MinFreeMem:  cfg.ThrottleFreeMem,
			MinFreeDisk: cfg.ThrottleFreeDisk,
		}
	}

	runner, err := ffmpeg.NewRunner(ffmpeg.Options{
		FFmpegBin:  cfg.FFmpegBin,
		FFprobeBin: cfg.FFprobeBin,
		ExtraArgs:  cfg.FFmpegExtraArgs,
		Gate:       gate,
		Logger:     logger.Named("ffmpeg"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if output == "" {
		output = cfg.DefaultOutputPath(input, "")
	}
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(output)); err != nil {
		fmt.Fprintf(os.Stderr, "could not create output directory: %v\n", err)
		return 1
	}

	reg := registry.New()
	op := operation.New(runner, operation.Options{
		Registry: reg,
		Diag:     sink,
		Logger:   logger.Named("operation"),
		Timeout:  cfg.ConvertTimeout,
	})
	defer op.Dispose()

	done := make(chan model.Status, 1)
	op.OnComplete(func(_ *operation.Operation, status model.Status) {
		done <- status
	})
	op.SetProgressHandler(func(_ *operation.Operation, percent int) {
		fmt.Printf("\r%3d%%", percent)
	})

	if err := op.Convert(input, output, span); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, stopping")
		reg.StopAll(true)
	}()

	status := <-done
	fmt.Printf("\r%s\n", status.DisplayText())

	if status != model.StatusSucceeded {
		return 1
	}

	fmt.Printf("%s (%s)\n", op.Output(), op.SizeText())
	if reveal && !op.OpenContainingFolder() {
		logger.Warn("could not reveal output in file manager", "path", op.Output())
	}
	return 0
}

// parseSpan turns the -from/-to flags into a crop range
func parseSpan(from, to string) (model.TimeRange, error) {
	var span model.TimeRange
	if from == "" {
		if to != "" {
			return span, fmt.Errorf("-to requires -from")
		}
		return span, nil
	}

	start, err := model.ParseTimecode(from)
	if err != nil {
		return span, fmt.Errorf("invalid -from: %w", err)
	}
	span.Start = &start

	if to != "" {
		end, err := model.ParseTimecode(to)
		if err != nil {
			return span, fmt.Errorf("invalid -to: %w", err)
		}
		if end.Duration() <= start.Duration() {
			return span, fmt.Errorf("-to must be later than -from")
		}
		span.End = &end
	}
	return span, nil
}

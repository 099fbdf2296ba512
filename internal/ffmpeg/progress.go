package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress reporting constants
const (
	ProgressPipeTarget = "pipe:2"
	progressTimePrefix = "out_time_us="
	progressEndLine    = "progress=end"

	// How many raw stderr lines to keep for error context
	tailLines = 12
)

// progressWatcher turns ffmpeg -progress output into integer
// percentages. Non-progress lines are remembered so a failed run can
// report what ffmpeg actually said.
type progressWatcher struct {
	sink  Sink
	total time.Duration
	last  int
	tail  []string
}

func newProgressWatcher(sink Sink, total time.Duration) *progressWatcher {
	return &progressWatcher{sink: sink, total: total, last: -1}
}

// consume reads lines until EOF, forwarding percentage updates
func (w *progressWatcher) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if percent, ok := w.parseLine(line); ok {
			if percent != w.last {
				w.last = percent
				w.sink.Progress(percent)
			}
		}
	}
}

// parseLine extracts a percentage from a single progress line
func (w *progressWatcher) parseLine(line string) (int, bool) {
	if line == progressEndLine {
		return 100, true
	}

	if strings.HasPrefix(line, progressTimePrefix) {
		raw := strings.TrimPrefix(line, progressTimePrefix)
		micros, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || w.total <= 0 {
			return 0, false
		}
		elapsed := time.Duration(micros) * time.Microsecond
		percent := int(float64(elapsed) / float64(w.total) * 100)
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		return percent, true
	}

	w.remember(line)
	return 0, false
}

func (w *progressWatcher) remember(line string) {
	if line == "" || strings.Contains(line, "=") {
		return
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > tailLines {
		w.tail = w.tail[len(w.tail)-tailLines:]
	}
}

// output returns the remembered stderr tail for error messages
func (w *progressWatcher) output() string {
	return strings.Join(w.tail, "\n")
}

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timecode is a position in a media stream, formatted as HH:MM:SS.mmm
// when talking to ffmpeg.
type Timecode time.Duration

// ParseTimecode parses HH:MM:SS.mmm, MM:SS.mmm or SS.mmm strings.
// Fractional seconds are optional.
func ParseTimecode(s string) (Timecode, error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode: %q", s)
	}

	var hours, minutes int64
	var err error

	switch len(parts) {
	case 3:
		hours, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil || hours < 0 {
			return 0, fmt.Errorf("invalid hours in timecode %q", s)
		}
		parts = parts[1:]
		fallthrough
	case 2:
		minutes, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("invalid minutes in timecode %q", s)
		}
		parts = parts[1:]
	}

	seconds, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("invalid seconds in timecode %q", s)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return Timecode(total), nil
}

// Duration returns the timecode as a time.Duration
func (tc Timecode) Duration() time.Duration {
	return time.Duration(tc)
}

// String formats the timecode as HH:MM:SS.mmm
func (tc Timecode) String() string {
	d := time.Duration(tc)
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// TimeRange is an optional crop range. A nil Start means no cropping at
// all; a nil End means cropping runs to the end of the file.
type TimeRange struct {
	Start *Timecode
	End   *Timecode
}

// NewTimeRange builds a range from parsed timecodes. Pass a negative
// value to leave a bound unset.
func NewTimeRange(start, end Timecode) TimeRange {
	var r TimeRange
	if start >= 0 {
		r.Start = &start
	}
	if end >= 0 {
		r.End = &end
	}
	return r
}

// HasStart returns true if a crop start position is set
func (r TimeRange) HasStart() bool {
	return r.Start != nil
}

// HasEnd returns true if a crop end position is set
func (r TimeRange) HasEnd() bool {
	return r.End != nil
}

// IsZero returns true if neither bound is set
func (r TimeRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// CroppedLength returns the duration of media left after cropping a
// stream of the given total length. With no start bound the stream is
// untouched; with no end bound the crop runs to end-of-file.
func (r TimeRange) CroppedLength(total time.Duration) time.Duration {
	if !r.HasStart() {
		return total
	}
	start := r.Start.Duration()
	end := total
	if r.HasEnd() {
		end = r.End.Duration()
	}
	if end <= start {
		return 0
	}
	return end - start
}

// String renders the range for logs, e.g. "[00:00:05.000, eof)"
func (r TimeRange) String() string {
	if !r.HasStart() {
		return "[unset]"
	}
	if !r.HasEnd() {
		return fmt.Sprintf("[%s, eof)", r.Start)
	}
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

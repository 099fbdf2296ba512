package ffmpeg

// Package ffmpeg wraps the external ffmpeg/ffprobe binaries: argument
// construction, process spawning, graceful quit over stdin, and
// translation of -progress output into percentage callbacks.

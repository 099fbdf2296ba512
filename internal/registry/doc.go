package registry

// Package registry tracks the process-wide set of running operations.
// It exists for bookkeeping (how many conversions are in flight) and
// for forced cleanup when the host shuts down.

package operation

// Package operation implements the cancellable conversion lifecycle:
// a unit of long-running work wrapping the external transcoder, with a
// fixed terminal-state machine (Idle, Working, then exactly one of
// Canceled, Failed, Succeeded), cooperative cancellation, progress
// reporting and an exactly-once completion event.

package diag

// Package diag provides the process-wide diagnostic sink. Failures
// inside background workers are recorded here instead of propagating;
// recording is fire-and-forget and never blocks.

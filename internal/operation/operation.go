package operation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ffget/media-converter/internal/diag"
	"github.com/ffget/media-converter/internal/ffmpeg"
	"github.com/ffget/media-converter/internal/model"
	"github.com/ffget/media-converter/internal/platform"
	"github.com/ffget/media-converter/internal/registry"
)

// Operation ID prefix
const opIDPrefix = "convert-"

var (
	// ErrNotSupported is returned by Pause and Resume: conversion
	// operations do not support suspension. Calling them anyway is a
	// caller bug, so the error is returned loudly, never logged away.
	ErrNotSupported = errors.New("operation does not support pause/resume")

	// ErrAlreadyStarted is returned by Convert on an operation that
	// has left the Idle state
	ErrAlreadyStarted = errors.New("operation already started")

	// ErrDisposed is returned by Convert on a disposed operation
	ErrDisposed = errors.New("operation disposed")
)

// Invoker abstracts the external transcoder so operations can be
// driven by a stub in tests
type Invoker interface {
	Convert(ctx context.Context, sink ffmpeg.Sink, input, output string) error
	Crop(ctx context.Context, sink ffmpeg.Sink, input, output string, span model.TimeRange) error
}

// Registry is the subset of the operation registry an operation uses
// for its own bookkeeping
type Registry interface {
	Add(op registry.Member)
	Remove(op registry.Member)
}

// process is the view Stop has of a running external process
type process interface {
	Quit() error
	Exited() bool
}

// CompletionHandler observes an operation reaching a terminal status.
// It fires exactly once per started operation.
type CompletionHandler func(op *Operation, status model.Status)

// ProgressHandler observes integer progress percentages in 0..100
type ProgressHandler func(op *Operation, percent int)

// StatusHandler observes status text refreshes
type StatusHandler func(op *Operation)

// RemoveHandler detaches a finished operation from its container when
// Stop was asked to remove it
type RemoveHandler func(op *Operation)

// Operation is a single cancellable conversion: one convert pass and
// an optional crop pass over the produced file. An Operation may be
// started at most once; terminal states are final.
type Operation struct {
	id      string
	invoker Invoker
	reg     Registry
	diag    *diag.Sink
	log     hclog.Logger
	timeout time.Duration

	mu               sync.Mutex
	status           model.Status
	input            string
	output           string
	crop             model.TimeRange
	removeOnComplete bool
	proc             process
	cancel           context.CancelFunc
	disposed         bool
	fired            bool
	percent          int
	sizeText         string
	subs             []CompletionHandler
	onProgress       ProgressHandler
	onStatus         StatusHandler
	onRemove         RemoveHandler
}

// Options configures optional collaborators of an operation
type Options struct {
	// Registry receives the operation while it is Working; nil means a
	// private throwaway registry
	Registry Registry
	// Diag receives worker errors; nil means the process-wide sink
	Diag *diag.Sink
	// Logger for operation lifecycle events
	Logger hclog.Logger
	// Timeout bounds the whole conversion; zero means no limit.
	// Expiry behaves like cancellation.
	Timeout time.Duration
}

// New creates an operation in the Idle state
func New(invoker Invoker, opts Options) *Operation {
	reg := opts.Registry
	if reg == nil {
		reg = noopRegistry{}
	}
	sink := opts.Diag
	if sink == nil {
		sink = diag.Default()
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Operation{
		id:      newID(),
		invoker: invoker,
		reg:     reg,
		diag:    sink,
		log:     log,
		timeout: opts.Timeout,
		status:  model.StatusIdle,
	}
}

// ID returns the unique operation id
func (op *Operation) ID() string { return op.id }

// Status returns the current lifecycle status
func (op *Operation) Status() model.Status {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status
}

// Input returns the source path
func (op *Operation) Input() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.input
}

// Output returns the destination path
func (op *Operation) Output() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.output
}

// Percent returns the last observed progress percentage
func (op *Operation) Percent() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.percent
}

// SizeText returns the human readable output size; populated only
// after the operation succeeded
func (op *Operation) SizeText() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.sizeText
}

// CropRange returns the pending crop bounds. After the worker finishes
// the range reads as unset regardless of outcome.
func (op *Operation) CropRange() model.TimeRange {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.crop
}

// StatusText returns the observer-facing status text
func (op *Operation) StatusText() string {
	return op.Status().DisplayText()
}

// CanOpen reports whether the output is ready to be opened
func (op *Operation) CanOpen() bool {
	return op.Status() == model.StatusSucceeded
}

// CanPause reports the pause capability; conversions cannot pause
func (op *Operation) CanPause() bool { return false }

// CanResume reports the resume capability; conversions cannot resume
func (op *Operation) CanResume() bool { return false }

// CanStop reports whether the operation is currently stoppable
func (op *Operation) CanStop() bool {
	return op.Status() == model.StatusWorking
}

// Pause always fails with ErrNotSupported
func (op *Operation) Pause() error { return ErrNotSupported }

// Resume always fails with ErrNotSupported
func (op *Operation) Resume() error { return ErrNotSupported }

// OnComplete subscribes to the completion event. Subscribers are
// detached by Dispose.
func (op *Operation) OnComplete(fn CompletionHandler) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.subs = append(op.subs, fn)
}

// SetProgressHandler sets the progress observer
func (op *Operation) SetProgressHandler(fn ProgressHandler) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.onProgress = fn
}

// SetStatusHandler sets the status text observer
func (op *Operation) SetStatusHandler(fn StatusHandler) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.onStatus = fn
}

// SetRemoveHandler sets the container detach callback consulted after
// completion when Stop requested removal
func (op *Operation) SetRemoveHandler(fn RemoveHandler) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.onRemove = fn
}

// Convert starts the conversion. It stores the paths and crop bounds,
// registers the operation, flips it to Working and schedules the
// worker; all further status changes arrive asynchronously through the
// progress and completion callbacks. Convert may be called at most
// once per operation.
func (op *Operation) Convert(input, output string, span model.TimeRange) error {
	op.mu.Lock()
	if op.disposed {
		op.mu.Unlock()
		return ErrDisposed
	}
	if op.status != model.StatusIdle {
		op.mu.Unlock()
		return ErrAlreadyStarted
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if op.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, op.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	op.input = input
	op.output = output
	op.crop = span
	op.cancel = cancel
	op.status = model.StatusWorking
	op.mu.Unlock()

	op.reg.Add(op)
	op.notifyStatus()
	op.log.Debug("operation started", "id", op.id, "input", input, "output", output, "crop", span.String())

	go op.work(ctx)
	return nil
}

// work drives the external transcoder off the caller's goroutine
func (op *Operation) work(ctx context.Context) {
	sink := workerSink{op}

	op.mu.Lock()
	input, output, span := op.input, op.output, op.crop
	op.mu.Unlock()

	err := op.invoker.Convert(ctx, sink, input, output)
	if err == nil && ctx.Err() == nil && span.HasStart() {
		err = op.invoker.Crop(ctx, sink, output, output, span)
	}

	// Crop bounds read as neutral after the run, whatever happened
	op.mu.Lock()
	op.crop = model.TimeRange{}
	op.mu.Unlock()

	final := model.StatusSucceeded
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		final = model.StatusCanceled
	case err != nil:
		op.diag.Record(fmt.Errorf("operation %s: %w", op.id, err))
		final = model.StatusFailed
	}

	op.finalize(final)
	op.fireCompletion()
}

// Stop requests a halt: ask a live external process to quit
// gracefully, cancel the worker, force the Canceled status and fire
// completion.
// It does not wait for the worker to actually observe cancellation.
// remove asks the host to detach the operation after the completion
// event; cleanup deletes a partial output file. Returns false when
// signalling the process failed.
func (op *Operation) Stop(remove, cleanup bool) bool {
	op.mu.Lock()
	op.removeOnComplete = remove
	status := op.status
	cancel := op.cancel
	proc := op.proc
	op.mu.Unlock()

	ok := true
	if status == model.StatusWorking || status == model.StatusPaused {
		if proc != nil && !proc.Exited() {
			if err := proc.Quit(); err != nil {
				op.diag.Record(fmt.Errorf("operation %s: quit signal: %w", op.id, err))
				ok = false
			}
		}
		if cancel != nil {
			cancel()
		}
		op.finalize(model.StatusCanceled)
	}

	if cleanup && op.Status() != model.StatusSucceeded {
		op.removeOutput()
	}

	op.fireCompletion()
	return ok
}

// removeOutput deletes a partially written output file. Failure here
// is a logged warning, not a fatal condition.
func (op *Operation) removeOutput() {
	output := op.Output()
	if output == "" {
		return
	}
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		op.diag.Warn("could not remove partial output", "id", op.id, "path", output, "error", err)
	}
}

// finalize performs the single terminal transition. Whichever of the
// worker and Stop gets here first wins; the loser is a no-op. This
// guard is what makes the completion event fire exactly once.
func (op *Operation) finalize(status model.Status) bool {
	op.mu.Lock()
	if op.status.IsTerminal() {
		op.mu.Unlock()
		return false
	}
	op.status = status
	op.proc = nil
	output := op.output
	op.mu.Unlock()

	if status == model.StatusSucceeded {
		size := platform.FileSizeString(output)
		op.mu.Lock()
		op.sizeText = size
		op.mu.Unlock()
	}

	op.reg.Remove(op)
	op.notifyStatus()
	op.log.Debug("operation finished", "id", op.id, "status", status.String())
	return true
}

// fireCompletion delivers the completion event to subscribers, at most
// once per operation, and honors a pending removal request
func (op *Operation) fireCompletion() {
	op.mu.Lock()
	if op.fired || !op.status.IsTerminal() {
		op.mu.Unlock()
		return
	}
	op.fired = true
	status := op.status
	subs := append([]CompletionHandler(nil), op.subs...)
	remove := op.removeOnComplete
	onRemove := op.onRemove
	op.mu.Unlock()

	for _, fn := range subs {
		fn(op, status)
	}
	if remove && onRemove != nil {
		onRemove(op)
	}
}

// Open launches the output file in the default external viewer.
// Best-effort: failures are reported as false, never as an error.
func (op *Operation) Open() bool {
	if err := platform.OpenFileWithDefaultApp(op.Output()); err != nil {
		op.log.Debug("open failed", "id", op.id, "error", err)
		return false
	}
	return true
}

// OpenContainingFolder reveals the output file in the system file
// manager. Best-effort, same contract as Open.
func (op *Operation) OpenContainingFolder() bool {
	if err := platform.RevealInFolder(op.Output()); err != nil {
		op.log.Debug("reveal failed", "id", op.id, "error", err)
		return false
	}
	return true
}

// Dispose releases the worker context and process handle and detaches
// all completion subscribers. Idempotent and safe to call from any
// cleanup path; callers must Stop a running operation first.
func (op *Operation) Dispose() {
	op.mu.Lock()
	if op.disposed {
		op.mu.Unlock()
		return
	}
	op.disposed = true
	cancel := op.cancel
	op.cancel = nil
	op.proc = nil
	op.subs = nil
	op.onProgress = nil
	op.onStatus = nil
	op.onRemove = nil
	op.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// reportProgress forwards a worker progress update. Updates arriving
// after the operation left Working are dropped.
func (op *Operation) reportProgress(percent int) {
	op.mu.Lock()
	if op.status != model.StatusWorking {
		op.mu.Unlock()
		return
	}
	op.percent = percent
	fn := op.onProgress
	op.mu.Unlock()

	if fn != nil {
		fn(op, percent)
	}
}

// attachProcess stores the spawned process handle so Stop can signal
// it while conversion is still running
func (op *Operation) attachProcess(p *ffmpeg.Process) {
	if p == nil {
		return
	}
	op.mu.Lock()
	if op.status == model.StatusWorking {
		op.proc = p
	}
	op.mu.Unlock()
}

// notifyStatus refreshes the observer-visible status text
func (op *Operation) notifyStatus() {
	op.mu.Lock()
	fn := op.onStatus
	op.mu.Unlock()
	if fn != nil {
		fn(op)
	}
}

// workerSink adapts the operation to the invoker's progress contract
type workerSink struct {
	op *Operation
}

func (s workerSink) Progress(percent int)             { s.op.reportProgress(percent) }
func (s workerSink) ProcessStarted(p *ffmpeg.Process) { s.op.attachProcess(p) }

// noopRegistry backs operations created without a registry
type noopRegistry struct{}

func (noopRegistry) Add(registry.Member)    {}
func (noopRegistry) Remove(registry.Member) {}

// newID generates a unique operation ID using UUID v7 for natural
// time ordering
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(opIDPrefix+"%d", time.Now().UnixNano())
	}
	return opIDPrefix + id.String()
}

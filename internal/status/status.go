// Package status provides Status
package status

//spellchecker:words rewritable

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/FAU-CDI/skosd/pkg/progress"
	"github.com/tkw1536/pkglib/lazy"
	"github.com/tkw1536/pkglib/perf"
)

// Status holds structured logging and statistical information about the stages of a process.
// Updating the status writes out detailed information to an underlying io.Writer.
//
// Status is safe to access concurrently, however the caller is responsible for only logging to one stage at a time.
//
// A nil Status is valid, and discards any information written to it.
type Status struct {
	m sync.RWMutex // m protects changes to current and all

	logger     *slog.Logger
	rewritable *progress.Rewritable

	store lazy.Lazy[StoreStats]

	current StageStats   // current holds information about the current stage
	all     []StageStats // all hold information about the old stages
}

// StoreStats holds statistics about the triple store in use.
type StoreStats struct {
	Backend string // name of the backend
	Triples int    // number of triples, or -1 if unknown
}

// New creates a new status which writes output to the given io.Writer.
// When debug is set, debug messages are also written.
//
// If w is nil, returns a nil Status.
func New(w io.Writer, debug bool) *Status {
	if w == nil {
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return &Status{
		logger:     slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		rewritable: &progress.Rewritable{Writer: w, FlushInterval: progress.DefaultFlushInterval},
	}
}

// Discard returns a Status that drops all log output but still keeps track of stages.
func Discard() *Status {
	return &Status{}
}

// Log logs an informational message with the provided key, value field pairs.
//
// When status or the associated logger are nil, no logging occurs.
func (st *Status) Log(message string, fields ...any) {
	if st == nil || st.logger == nil {
		return
	}
	st.logger.Info(message, fields...)
}

// LogDebug logs a debug message with the provided key, value field pairs.
//
// When status or the associated logger are nil, no logging occurs.
func (st *Status) LogDebug(message string, fields ...any) {
	if st == nil || st.logger == nil {
		return
	}
	st.logger.Debug(message, fields...)
}

// LogError logs an error message containing the provided error and the provided key, value field pairs.
//
// When status or the associated logger are nil, no logging occurs.
func (st *Status) LogError(message string, err error, fields ...any) {
	if st == nil || st.logger == nil {
		return
	}

	st.logger.Error("FAILED "+message, append([]any{"err", err}, fields...)...)
}

// LogFatal is like LogError followed by os.Exit(1).
// When status or the associated logger are nil, os.Exit(1) is called immediately.
func (st *Status) LogFatal(message string, err error) {
	st.LogError(message, err)
	os.Exit(1)
}

// Rewritable returns the progress line of st.
// When st is nil, returns a Rewritable discarding all output.
func (st *Status) Rewritable() *progress.Rewritable {
	if st == nil || st.rewritable == nil {
		return &progress.Rewritable{}
	}
	return st.rewritable
}

// StoreStats stores statistics about the store.
// If st is nil, this call has no effect.
func (st *Status) StoreStats(stats StoreStats) {
	if st == nil {
		return
	}
	st.store.Set(stats)
}

// Store returns the statistics stored using StoreStats.
func (st *Status) Store() StoreStats {
	if st == nil {
		return StoreStats{Triples: -1}
	}
	return st.store.Get(func() StoreStats {
		return StoreStats{Triples: -1}
	})
}

// Current returns a copy of the current StageStats
func (st *Status) Current() StageStats {
	if st == nil {
		var zero StageStats
		return zero
	}
	st.m.RLock()
	defer st.m.RUnlock()
	return st.current
}

// All returns a copy of all stages, including the current one.
func (st *Status) All() []StageStats {
	if st == nil {
		return []StageStats{}
	}

	st.m.RLock()
	defer st.m.RUnlock()

	all := append([]StageStats{}, st.all...)
	if st.current.Stage != StageInitial {
		all = append(all, st.current)
	}
	return all
}

// Diff returns a performance diff starting at the first, and ending at the last stage.
// If status is nil, a zero diff is returned.
func (st *Status) Diff() perf.Diff {
	if st == nil {
		var zero perf.Diff
		return zero
	}

	st.m.RLock()
	defer st.m.RUnlock()

	first := st.current.Start
	last := st.current.End

	for _, ss := range st.all {
		if first.Time.IsZero() || ss.Start.Time.Before(first.Time) {
			first = ss.Start
		}
		if last.Time.IsZero() || ss.End.Time.After(last.Time) {
			last = ss.End
		}
	}

	return last.Sub(first)
}

// Start starts a new stage, updating the current property.
// Any changes are written to the underlying writer.
//
// If st is nil, this function has no effect.
func (st *Status) Start(stage Stage) {
	if st == nil {
		return
	}

	st.m.Lock()
	defer st.m.Unlock()

	// end the previous stage (if any)
	st.end()

	st.current.Stage = stage
	st.current.Start = perf.Now()

	if st.logger != nil {
		st.logger.Info("start", "stage", stage)
	}
}

// End ends the current stage if any.
// Any changes are flushed to the underlying writer.
//
// If st is nil, this function has no effect.
func (st *Status) End() (prev StageStats) {
	if st == nil {
		return
	}

	st.m.Lock()
	defer st.m.Unlock()

	return st.end()
}

// end implements End.
// st must not be nil and st.m must be held for writing.
func (st *Status) end() (prev StageStats) {
	if st.current.Stage != StageInitial {
		st.current.End = perf.Now()
		st.all = append(st.all, st.current)
		prev = st.current
	}

	st.current = *new(StageStats)

	if prev.Stage == StageInitial {
		return
	}

	// write the final progress and reset the line
	if st.rewritable != nil {
		st.rewritable.Flush(true)
		st.rewritable.Close()
	}

	if st.logger != nil {
		if prev.Total != 0 || prev.Current != 0 {
			st.logger.Info("end", "stage", prev.Stage, "took", prev.Diff(), "current", prev.Current, "total", prev.Total)
		} else {
			st.logger.Info("end", "stage", prev.Stage, "took", prev.Diff())
		}
	}
	return
}

// DoStage is a convenience wrapper to start a new stage, call f, and log the resulting error if any.
//
// If st is nil, immediately invokes f.
func (st *Status) DoStage(stage Stage, f func() error) error {
	if st == nil {
		return f()
	}

	st.Start(stage)

	err := f()

	st.m.Lock()
	st.end()
	st.m.Unlock()

	if err != nil {
		st.LogError("stage", err, "stage", stage)
	}
	return err
}

// SetCT sets the current and total for the current stage.
// If st is nil, this function has no effect.
func (st *Status) SetCT(current, total int) {
	if st == nil {
		return
	}

	var progress string

	st.m.Lock()
	{
		st.current.Current = current
		st.current.Total = total
		progress = st.current.Progress()
	}
	st.m.Unlock()

	if st.rewritable != nil && progress != "" {
		st.rewritable.Write(progress)
	}
}

// StageStats holds the stats for a specific stage
type StageStats struct {
	Stage Stage

	Start perf.Snapshot // At the start of the stage
	End   perf.Snapshot // At the end of the stage

	Current int
	Total   int
}

// Progress returns a string holding progress information on the current stage.
// A Total of -1 means the total is not known.
func (ss StageStats) Progress() string {
	switch {
	case ss.Total == 0:
		return ""
	case ss.Total > 0 && ss.Current < ss.Total:
		return fmt.Sprintf("%s: %d/%d", string(ss.Stage), ss.Current, ss.Total)
	default:
		return fmt.Sprintf("%s: %d", string(ss.Stage), ss.Current)
	}
}

// Diff returns a diff of the given stage
func (ss StageStats) Diff() perf.Diff {
	return ss.End.Sub(ss.Start)
}

// Stage represents a stage used for statistics
type Stage string

const (
	StageInitial Stage = ""
	StageOpen    Stage = "store/open"
	StageLoad    Stage = "store/load"
	StageCatalog Stage = "catalog/migrate"
	StageSearch  Stage = "search/migrate"
	StageReindex Stage = "search/reindex"
	StageServe   Stage = "serve"
)

package snapshot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// State is the lifecycle position of a Guard.
type State int

const (
	Idle State = iota
	Registered
	Executing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Registered:
		return "registered"
	case Executing:
		return "executing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrorRecord describes the failure that ended a script run.
type ErrorRecord struct {
	Kind    string
	Message string
	Trace   string
}

// Text formats the record the way it is stored in error.txt.
func (r ErrorRecord) Text() string {
	var b strings.Builder
	if r.Trace != "" {
		b.WriteString(strings.TrimRight(r.Trace, "\n"))
		b.WriteString("\n")
	}
	if r.Kind != "" || r.Message != "" {
		if r.Kind != "" {
			b.WriteString(r.Kind)
			if r.Message != "" {
				b.WriteString(": ")
			}
		}
		b.WriteString(r.Message)
		b.WriteString("\n")
	}
	return b.String()
}

// Guard owns one pending snapshot. The snapshot is taken once, either by an
// explicit Run or by the deferred Close at the end of the caller's scope.
type Guard struct {
	snap *snapshotter

	mu        sync.Mutex
	state     State
	lastError *ErrorRecord

	once   sync.Once
	runErr error
}

// OutputDir is the directory both archives are written to.
func (g *Guard) OutputDir() string {
	return g.snap.outputDir
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// RecordError stores rec as the failure of the run. A later record replaces
// an earlier one.
func (g *Guard) RecordError(rec ErrorRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastError = &rec
}

// LastError returns the recorded failure, if any.
func (g *Guard) LastError() (ErrorRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastError == nil {
		return ErrorRecord{}, false
	}
	return *g.lastError, true
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// takeError returns the recorded failure and clears it.
func (g *Guard) takeError() *ErrorRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := g.lastError
	g.lastError = nil
	return rec
}

// Run takes the snapshot. Only the first call does any work; later calls
// return its result.
func (g *Guard) Run(ctx context.Context) error {
	g.once.Do(func() {
		g.setState(Executing)
		g.runErr = g.snap.execute(ctx, g.takeError())
		g.setState(Done)
	})
	return g.runErr
}

// Close runs the snapshot and is meant to be deferred right after Register.
// With the hook enabled a panic in the caller is recorded first and then
// re-raised once the archives are written.
func (g *Guard) Close() error {
	if g.snap.req.Hook {
		if r := recover(); r != nil {
			g.RecordError(ErrorRecord{
				Kind:    "panic",
				Message: fmt.Sprint(r),
				Trace:   string(debug.Stack()),
			})
			if err := g.Run(context.Background()); err != nil {
				g.snap.log.WithError(err).Error("snapshot failed")
			}
			panic(r)
		}
	}
	return g.Run(context.Background())
}

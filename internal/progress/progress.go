// Package progress renders the Interface Indexer's eventbus.Event stream as
// animated terminal progress, the way sourcegraph-lsif-go's own progress.go
// renders its indexer's phase list.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/efritz/pentimento"

	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/util"
	"github.com/swiftface/swiftface/log"
)

// Verbosity controls how much is printed once a phase finishes.
type Verbosity int

const (
	NoOutput Verbosity = iota
	DefaultOutput
	VerboseOutput
)

// Options configures a Reporter.
type Options struct {
	Verbosity      Verbosity
	ShowAnimations bool
}

var updateInterval = time.Second / 4

var ticker = pentimento.NewAnimatedString([]string{
	"⠸", "⠼",
	"⠴", "⠦",
	"⠧", "⠇",
	"⠏", "⠋",
	"⠙", "⠹",
}, updateInterval)

const (
	successPrefix = "✔"
	failurePrefix = "✗"
)

// Reporter subscribes to an eventbus.Bus and renders one animated line per
// phase, printed in the order phases start (spec.md §4.2's fixed phase
// order). It never influences indexing results, matching the dispatcher's
// own fire-and-forget contract: Reporter is purely an eventbus.Handler.
type Reporter struct {
	opts Options

	mu      sync.Mutex
	started map[eventbus.Phase]time.Time
}

// NewReporter constructs a Reporter. Subscribe its Handle method to a Bus
// to start rendering. log's package-level level is raised to Debug under
// VerboseOutput so per-record diagnostics (a skipped record, a
// name-extraction warning) surface alongside the phase lines instead of being swallowed.
func NewReporter(opts Options) *Reporter {
	if opts.Verbosity >= VerboseOutput {
		log.SetLevel(log.Debug)
	} else if opts.Verbosity > NoOutput {
		log.SetLevel(log.Info)
	} else {
		log.SetLevel(log.None)
	}
	return &Reporter{opts: opts, started: map[eventbus.Phase]time.Time{}}
}

// Handle implements eventbus.Handler.
func (r *Reporter) Handle(e eventbus.Event) {
	if e.Kind == eventbus.KindDiagnostic || e.Kind == eventbus.KindNameExtractionWarning {
		r.diagnostic(e)
		return
	}
	if isProcessingFailedKind(e.Kind) {
		log.Infof("%s: %v", e.Phase, e.Err)
		return
	}

	if r.opts.Verbosity == NoOutput {
		return
	}
	if e.Kind != eventbus.KindPhaseTransition {
		return
	}

	switch e.State {
	case eventbus.PhaseStarted:
		r.mu.Lock()
		r.started[e.Phase] = time.Now()
		r.mu.Unlock()
		if r.opts.ShowAnimations {
			fmt.Printf("%s %s... ", ticker, e.Phase)
		} else {
			fmt.Printf("%s...\n", e.Phase)
		}
	case eventbus.PhaseCompleted:
		r.report(e.Phase, successPrefix)
	case eventbus.PhaseFailed:
		r.report(e.Phase, failurePrefix)
		if e.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", e.Phase, e.Err)
		}
	}
}

func isProcessingFailedKind(k eventbus.Kind) bool {
	switch k {
	case eventbus.KindTypeProcessingFailed, eventbus.KindProtocolProcessingFailed,
		eventbus.KindConformanceProcessingFailed, eventbus.KindExtensionProcessingFailed:
		return true
	default:
		return false
	}
}

// diagnostic routes a free-form diagnostic or name-extraction warning
// through log at the level its eventbus.DiagnosticLevel implies.
func (r *Reporter) diagnostic(e eventbus.Event) {
	msg := e.Message
	if msg == "" && e.Section != "" {
		msg = "failed to extract name for " + e.Section
	}
	switch e.Level {
	case eventbus.DiagnosticError, eventbus.DiagnosticWarning:
		log.Infof("%s", msg)
	default:
		log.Debugf("%s", msg)
	}
}

func (r *Reporter) report(phase eventbus.Phase, prefix string) {
	r.mu.Lock()
	start, ok := r.started[phase]
	r.mu.Unlock()

	if r.opts.Verbosity >= VerboseOutput && ok {
		fmt.Printf("%s %s (%s)\n", prefix, phase, util.HumanElapsed(start))
	} else {
		fmt.Printf("%s %s\n", prefix, phase)
	}
}

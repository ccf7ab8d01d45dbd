// Package interfaceindexer orchestrates the five-phase Interface Indexer
// pipeline described in spec.md §4.2: extraction, types, protocols,
// conformances & associated types, extensions, globals. Each phase is
// wrapped in a started/completed-or-failed event pair published on an
// eventbus.Bus.
package interfaceindexer

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// Config mirrors spec.md §6's SwiftInterfaceIndexConfiguration.
type Config struct {
	ShowCImportedTypes bool
}

// Indexer owns one image's full indexed declaration graph. Each field group
// below is written by exactly one phase and thereafter only read by later
// phases or the Printer; the mutex on each group exists for the same reason
// Storage's consumed latch does (spec.md §5): defense against a caller that
// reads concurrently with Prepare, not because phases themselves run
// concurrently with one another.
type Indexer struct {
	img    *machoimage.Image
	reader *metadata.Reader
	bus    *eventbus.Bus
	config Config

	storage *symbolindex.Storage

	prepareOnce sync.Once
	prepareErr  error

	extractedTypes        []metadata.TypeRecord
	extractedProtocols    []metadata.ProtocolRecord
	extractedConformances []metadata.ProtocolConformanceRecord
	extractedAssocTypes   []metadata.AssociatedTypeRecord

	typeMu              sync.Mutex
	allTypeDefinitions  map[string]*definition.TypeDefinition
	typeNameOrder       []string
	rootTypeDefinitions []*definition.TypeDefinition

	protocolMu              sync.Mutex
	allProtocolDefinitions  map[string]*definition.ProtocolDefinition
	protocolNameOrder       []string
	rootProtocolDefinitions []*definition.ProtocolDefinition

	extensionMu              sync.Mutex
	typeExtensionDefinitions []*definition.ExtensionDefinition
	extensionByKey           map[string]*definition.ExtensionDefinition
	extensionKeyOrder        []string

	conformanceMu                     sync.Mutex
	protocolConformancesByTypeName    map[string]map[string]metadata.ProtocolConformanceRecord
	conformanceProtocolOrderByType    map[string][]string
	conformanceTypeNameOrder          []string
	conformingTypesByProtocolName     map[string][]string
	conformingProtocolOrder           []string
	associatedTypesByTypeName         map[string]map[string]metadata.AssociatedTypeRecord

	globalsMu                  sync.Mutex
	globalVariableDefinitions  []definition.VariableDefinition
	globalFunctionDefinitions  []definition.FunctionDefinition

	diagMu     sync.Mutex
	diagErrors *multierror.Error
}

// New constructs an Indexer over an already-opened image. The Symbol Index
// is built lazily on the first call to Prepare.
func New(img *machoimage.Image, reader *metadata.Reader, bus *eventbus.Bus, config Config) *Indexer {
	return &Indexer{
		img:    img,
		reader: reader,
		bus:    bus,
		config: config,

		allTypeDefinitions:             map[string]*definition.TypeDefinition{},
		allProtocolDefinitions:         map[string]*definition.ProtocolDefinition{},
		extensionByKey:                 map[string]*definition.ExtensionDefinition{},
		protocolConformancesByTypeName: map[string]map[string]metadata.ProtocolConformanceRecord{},
		conformanceProtocolOrderByType: map[string][]string{},
		conformingTypesByProtocolName:  map[string][]string{},
		associatedTypesByTypeName:      map[string]map[string]metadata.AssociatedTypeRecord{},
	}
}

// Storage exposes the built Symbol Index once Prepare has run.
func (ix *Indexer) Storage() *symbolindex.Storage { return ix.storage }

// recordFailure accumulates a non-fatal per-record failure alongside the
// eventbus event a phase already published for it. These never abort
// Prepare; Diagnostics collects them for a caller that wants a single
// value to inspect once indexing finishes.
func (ix *Indexer) recordFailure(err error) {
	ix.diagMu.Lock()
	ix.diagErrors = multierror.Append(ix.diagErrors, err)
	ix.diagMu.Unlock()
}

// Diagnostics returns every non-fatal per-record failure accumulated
// across all five phases, or nil if none occurred. Prepare can return nil
// (success) while Diagnostics returns a non-nil value: a skipped duplicate
// type or an extension with no resolvable target doesn't fail the build.
func (ix *Indexer) Diagnostics() error {
	ix.diagMu.Lock()
	defer ix.diagMu.Unlock()
	return ix.diagErrors.ErrorOrNil()
}

// RootTypeDefinitions returns every top-level (non-nested, non-extension)
// type, in Phase 1 insertion order.
func (ix *Indexer) RootTypeDefinitions() []*definition.TypeDefinition {
	ix.typeMu.Lock()
	defer ix.typeMu.Unlock()
	out := make([]*definition.TypeDefinition, len(ix.rootTypeDefinitions))
	copy(out, ix.rootTypeDefinitions)
	return out
}

// AllTypeDefinitions returns every type definition keyed by type name, in
// first-contact insertion order.
func (ix *Indexer) AllTypeDefinitions() []*definition.TypeDefinition {
	ix.typeMu.Lock()
	defer ix.typeMu.Unlock()
	out := make([]*definition.TypeDefinition, 0, len(ix.typeNameOrder))
	for _, name := range ix.typeNameOrder {
		out = append(out, ix.allTypeDefinitions[name])
	}
	return out
}

// RootProtocolDefinitions returns every top-level protocol, in Phase 2
// insertion order.
func (ix *Indexer) RootProtocolDefinitions() []*definition.ProtocolDefinition {
	ix.protocolMu.Lock()
	defer ix.protocolMu.Unlock()
	out := make([]*definition.ProtocolDefinition, len(ix.rootProtocolDefinitions))
	copy(out, ix.rootProtocolDefinitions)
	return out
}

// TypeExtensionDefinitions returns every synthesized extension, in
// first-synthesis insertion order across phases 1-4.
func (ix *Indexer) TypeExtensionDefinitions() []*definition.ExtensionDefinition {
	ix.extensionMu.Lock()
	defer ix.extensionMu.Unlock()
	out := make([]*definition.ExtensionDefinition, len(ix.typeExtensionDefinitions))
	copy(out, ix.typeExtensionDefinitions)
	return out
}

// GlobalVariableDefinitions returns Phase 5's global variables.
func (ix *Indexer) GlobalVariableDefinitions() []definition.VariableDefinition {
	ix.globalsMu.Lock()
	defer ix.globalsMu.Unlock()
	out := make([]definition.VariableDefinition, len(ix.globalVariableDefinitions))
	copy(out, ix.globalVariableDefinitions)
	return out
}

// GlobalFunctionDefinitions returns Phase 5's global functions.
func (ix *Indexer) GlobalFunctionDefinitions() []definition.FunctionDefinition {
	ix.globalsMu.Lock()
	defer ix.globalsMu.Unlock()
	out := make([]definition.FunctionDefinition, len(ix.globalFunctionDefinitions))
	copy(out, ix.globalFunctionDefinitions)
	return out
}

// Prepare runs all five phases in order. Idempotent: a second call (whether
// the first succeeded or failed partway) returns the memoized result
// without doing any work again, per spec.md §8's "prepare() called twice...
// yields the same final storage."
func (ix *Indexer) Prepare(ctx context.Context) error {
	ix.prepareOnce.Do(func() {
		ix.prepareErr = ix.prepare(ctx)
	})
	return ix.prepareErr
}

func (ix *Indexer) prepare(ctx context.Context) error {
	ix.storage = symbolindex.Build(ix.img)

	phases := []struct {
		phase eventbus.Phase
		run   func() error
	}{
		{eventbus.PhaseExtraction, ix.runExtraction},
		{eventbus.PhaseTypes, ix.runTypes},
		{eventbus.PhaseProtocols, ix.runProtocols},
		{eventbus.PhaseConformances, ix.runConformances},
		{eventbus.PhaseExtensions, func() error { return ix.runExtensions(ctx) }},
		{eventbus.PhaseGlobals, ix.runGlobals},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ix.bus.Scoped(p.phase, p.run); err != nil {
			return errors.Wrapf(err, "phase %s", p.phase)
		}
	}
	return nil
}

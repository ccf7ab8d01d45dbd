package interfaceindexer

import (
	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// runGlobals is Phase 5 (spec.md §4.2): classify every root-level symbol
// that belongs to no type into global variables and global functions, using
// the same Definition Builders a type's members go through, with
// IsGlobalOrStatic forced true per spec.md §4.3.
func (ix *Indexer) runGlobals() error {
	ix.bus.PhaseCollectionStarted(eventbus.PhaseGlobals)
	defer ix.bus.PhaseCollectionCompleted(eventbus.PhaseGlobals)

	storageVars := ix.storage.GlobalsByKind(symbolindex.GlobalKind{IsStorage: true})
	computedVars := ix.storage.GlobalsByKind(symbolindex.GlobalKind{IsStorage: false})
	fns := ix.storage.GlobalsByKind(symbolindex.GlobalFunction)

	candidates := make([]definition.Candidate, 0, len(storageVars)+len(computedVars))
	for _, s := range storageVars {
		candidates = append(candidates, definition.Candidate{Symbol: s.Symbol.Name, Node: s.Node, Offset: s.Symbol.Offset})
	}
	for _, s := range computedVars {
		candidates = append(candidates, definition.Candidate{Symbol: s.Symbol.Name, Node: s.Node, Offset: s.Symbol.Offset})
	}

	vars := definition.BuildVariables(candidates, nil)
	for i := range vars {
		vars[i].IsGlobalOrStatic = true
	}

	fnCandidates := make([]definition.Candidate, 0, len(fns))
	for _, s := range fns {
		fnCandidates = append(fnCandidates, definition.Candidate{Symbol: s.Symbol.Name, Node: s.Node, Offset: s.Symbol.Offset})
	}
	funcs := definition.BuildFunctions(fnCandidates)
	for i := range funcs {
		funcs[i].IsGlobalOrStatic = true
	}

	ix.globalsMu.Lock()
	ix.globalVariableDefinitions = vars
	ix.globalFunctionDefinitions = funcs
	ix.globalsMu.Unlock()

	return nil
}

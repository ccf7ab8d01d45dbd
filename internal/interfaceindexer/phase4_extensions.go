package interfaceindexer

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// runExtensions is Phase 4 (spec.md §4.2): query every inExtension=true
// member bucket, partition by generic signature, and route each partition
// into the ExtensionDefinition the (typeNode, extensionKind) pair names —
// the same object a Phase 1/2 structural-nesting synthesis may already have
// created, per the GLOSSARY's "Extension name" unification. Then runs the
// bounded-concurrency conformance-extension follow-up pass.
func (ix *Indexer) runExtensions(ctx context.Context) error {
	ix.bus.PhaseCollectionStarted(eventbus.PhaseExtensions)
	defer ix.bus.PhaseCollectionCompleted(eventbus.PhaseExtensions)

	kinds := definition.MemberKindGroup(true)
	groups := ix.storage.MemberSymbolsByNodeMap(symbolindex.QueryMembers, nil, kinds...)

	for _, g := range groups {
		ti, ok := ix.storage.TypeInfo(g.TypeName)
		if !ok {
			msg := fmt.Sprintf("extension target %q has no recorded type info; skipped", g.TypeName)
			ix.bus.Diagnostic(eventbus.DiagnosticWarning, msg)
			ix.recordFailure(fmt.Errorf("%s", msg))
			continue
		}

		ext := ix.extensionFor(g.TypeName, extensionKindForDeclKind(ti.Kind), g.TypeNode, nil)

		for _, sigKey := range orderedSignatureKeys(g.ByKind) {
			buckets, sigNode := bucketsForSignature(g.ByKind, sigKey)
			ix.extensionMu.Lock()
			if sigNode != nil && ext.GenericSignature == nil {
				ext.GenericSignature = sigNode
			}
			ix.extensionMu.Unlock()
			ext.PopulateMembers(buckets)
		}
	}

	return ix.runConformanceExtensionFollowUp(ctx)
}

// extensionKindForDeclKind maps a recorded nominal-type kind onto the
// ExtensionDefinition identity's kind tag.
func extensionKindForDeclKind(k mangle.Kind) definition.ExtensionKind {
	switch k {
	case mangle.KindProtocol:
		return definition.ExtensionOfProtocol
	case mangle.KindTypeAlias:
		return definition.ExtensionOfTypeAlias
	default:
		return definition.ExtensionOfType
	}
}

// orderedSignatureKeys returns the distinct generic-signature structural
// keys present across byKind's variable buckets (plus "" for "no
// signature"), in first-contact order. "" is always last so the no-generic
// group — present on every extension — is processed deterministically
// relative to any signature groups.
func orderedSignatureKeys(byKind []symbolindex.KindBucket) []string {
	seen := map[string]bool{}
	var order []string
	hasNoSig := false
	for _, kb := range byKind {
		if kb.Kind.Syntax != symbolindex.MemberVariable {
			hasNoSig = true
			continue
		}
		for _, sym := range kb.Symbols {
			sig := sym.Node.DescendantOfKind(mangle.KindDependentGenericSignature)
			if sig == nil {
				hasNoSig = true
				continue
			}
			key := sig.StructuralKey()
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}
	if hasNoSig || len(order) == 0 {
		order = append(order, "")
	}
	return order
}

// bucketsForSignature rebuilds the per-kind bucket list restricted to the
// symbols belonging to signature group sigKey ("" meaning "no signature"),
// and returns the actual signature node for that key (nil for "").
func bucketsForSignature(byKind []symbolindex.KindBucket, sigKey string) ([]symbolindex.KindBucket, *mangle.Node) {
	var sigNode *mangle.Node
	out := make([]symbolindex.KindBucket, 0, len(byKind))

	for _, kb := range byKind {
		if kb.Kind.Syntax != symbolindex.MemberVariable {
			if sigKey == "" {
				out = append(out, kb)
			}
			continue
		}

		var matched []*symbolindex.IndexedSymbol
		for _, sym := range kb.Symbols {
			sig := sym.Node.DescendantOfKind(mangle.KindDependentGenericSignature)
			if sig == nil {
				if sigKey == "" {
					matched = append(matched, sym)
				}
				continue
			}
			if sig.StructuralKey() == sigKey {
				matched = append(matched, sym)
				if sigNode == nil {
					sigNode = sig
				}
			}
		}
		if len(matched) > 0 {
			out = append(out, symbolindex.KindBucket{Kind: kb.Kind, Symbols: matched})
		}
	}
	return out, sigNode
}

// conformanceExtensionFollowUpConcurrency is max(1, min(4, activeCpus))
// per spec.md §5.
func conformanceExtensionFollowUpConcurrency() int64 {
	n := runtime.GOMAXPROCS(0)
	if n > 4 {
		n = 4
	}
	if n < 1 {
		n = 1
	}
	return int64(n)
}

// runConformanceExtensionFollowUp resolves resilient witnesses for every
// conformance-bearing extension synthesized in Phase 3, bounded to
// max(1,min(4,activeCpus)) in flight to bound shared-cache contention
// (spec.md §5).
func (ix *Indexer) runConformanceExtensionFollowUp(ctx context.Context) error {
	ix.extensionMu.Lock()
	targets := make([]*definition.ExtensionDefinition, 0, len(ix.typeExtensionDefinitions))
	for _, ext := range ix.typeExtensionDefinitions {
		if ext.ProtocolConformance != nil && len(ext.ProtocolConformance.ResilientWitnesses) > 0 {
			targets = append(targets, ext)
		}
	}
	ix.extensionMu.Unlock()

	sem := semaphore.NewWeighted(conformanceExtensionFollowUpConcurrency())
	var wg sync.WaitGroup

	for _, ext := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(ext *definition.ExtensionDefinition) {
			defer wg.Done()
			defer sem.Release(1)
			ext.Index(ix.storage)
		}(ext)
	}

	wg.Wait()
	return nil
}

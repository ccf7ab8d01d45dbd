package interfaceindexer

import (
	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
)

// extensionFor returns the ExtensionDefinition identified by (name, kind,
// targetNode), creating it on first sight. Dedup key is
// ExtensionDefinition.Key() — the GLOSSARY's "Extension name" — so that a
// struct's extension discovered via a nested type (Phase 1) and the same
// struct's extension discovered via a nested protocol (Phase 2) land in the
// same entry.
func (ix *Indexer) extensionFor(name string, kind definition.ExtensionKind, targetNode, genSig *mangle.Node) *definition.ExtensionDefinition {
	candidate := &definition.ExtensionDefinition{
		ExtensionName:    name,
		ExtensionKind:    kind,
		TargetNode:       targetNode,
		GenericSignature: genSig,
	}
	key := candidate.Key()

	ix.extensionMu.Lock()
	defer ix.extensionMu.Unlock()

	if existing, ok := ix.extensionByKey[key]; ok {
		return existing
	}
	ix.extensionByKey[key] = candidate
	ix.typeExtensionDefinitions = append(ix.typeExtensionDefinitions, candidate)
	ix.extensionKeyOrder = append(ix.extensionKeyOrder, key)
	return candidate
}

// extensionForContextRef resolves the ExtensionDefinition for a context
// descriptor's immediate parent, when that parent is itself an extension or
// a bare (stripped) symbol.
func (ix *Indexer) extensionForContextRef(parent metadata.ContextRef, kind definition.ExtensionKind) *definition.ExtensionDefinition {
	switch parent.Kind {
	case metadata.ContextRefExtension:
		name, node, genSig := "", (*mangle.Node)(nil), (*mangle.Node)(nil)
		if parent.Extension != nil {
			name = parent.Extension.ExtendedTypeName
			node = parent.Extension.ExtendedNode
			genSig = parent.Extension.GenericSignature
		}
		return ix.extensionFor(name, kind, node, genSig)
	case metadata.ContextRefSymbol:
		return ix.extensionFor(parent.Symbol, kind, nil, nil)
	default:
		return ix.extensionFor("", kind, nil, nil)
	}
}

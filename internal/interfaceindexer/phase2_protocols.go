package interfaceindexer

import (
	"fmt"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/metadata"
)

// runProtocols is Phase 2 (spec.md §4.2): build a ProtocolDefinition per
// protocol record and walk its context chain exactly as Phase 1 does for
// types.
func (ix *Indexer) runProtocols() error {
	ix.bus.PhaseCollectionStarted(eventbus.PhaseProtocols)
	defer ix.bus.PhaseCollectionCompleted(eventbus.PhaseProtocols)

	ix.protocolMu.Lock()
	for _, rec := range ix.extractedProtocols {
		if _, exists := ix.allProtocolDefinitions[rec.Name]; exists {
			err := fmt.Errorf("duplicate protocol definition for %q", rec.Name)
			ix.bus.ProcessingFailed(eventbus.PhaseProtocols, err)
			ix.recordFailure(err)
			continue
		}
		pd := &definition.ProtocolDefinition{Protocol: rec, Name: rec.Name}
		ix.allProtocolDefinitions[rec.Name] = pd
		ix.protocolNameOrder = append(ix.protocolNameOrder, rec.Name)
	}
	names := append([]string(nil), ix.protocolNameOrder...)
	ix.protocolMu.Unlock()

	for _, name := range names {
		ix.linkProtocolParent(ix.allProtocolDefinitions[name])
	}

	for _, name := range names {
		pd := ix.allProtocolDefinitions[name]
		if pd.Parent == nil && pd.ExtensionContext == nil {
			ix.protocolMu.Lock()
			ix.rootProtocolDefinitions = append(ix.rootProtocolDefinitions, pd)
			ix.protocolMu.Unlock()
		}
	}

	return nil
}

// linkProtocolParent resolves pd's immediate parent: a known type adopts
// it into protocolChildren; an extension parent records extensionContext
// and synthesizes a type extension.
func (ix *Indexer) linkProtocolParent(pd *definition.ProtocolDefinition) {
	parent := pd.Protocol.Parent
	switch parent.Kind {
	case metadata.ContextRefType:
		ix.typeMu.Lock()
		parentDef, ok := ix.allTypeDefinitions[parent.TypeName]
		if ok {
			parentDef.ProtocolChildren = append(parentDef.ProtocolChildren, pd)
			pd.Parent = parentDef
		}
		ix.typeMu.Unlock()
		if !ok {
			pd.ExtensionContext = &definition.ParentContext{Kind: definition.ParentContextType, TypeName: parent.TypeName}
		}
	case metadata.ContextRefExtension:
		name := ""
		if parent.Extension != nil {
			name = parent.Extension.ExtendedTypeName
		}
		pd.ExtensionContext = &definition.ParentContext{Kind: definition.ParentContextExtension, Extension: name}
		ext := ix.extensionForContextRef(parent, definition.ExtensionOfType)
		ix.extensionMu.Lock()
		ext.Protocols = append(ext.Protocols, pd)
		ix.extensionMu.Unlock()
	case metadata.ContextRefSymbol:
		pd.ExtensionContext = &definition.ParentContext{Kind: definition.ParentContextSymbol, Symbol: parent.Symbol}
	}
}

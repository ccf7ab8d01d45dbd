package interfaceindexer

import (
	"fmt"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/metadata"
)

// runTypes is Phase 1 (spec.md §4.2). It builds a TypeDefinition per type
// record, links the nested/root/extension-or-foreign-symbol structure via
// each record's resolved parent context, and synthesizes an
// ExtensionDefinition for every type whose structural root is an extension
// or a stripped symbol chain.
func (ix *Indexer) runTypes() error {
	ix.bus.PhaseCollectionStarted(eventbus.PhaseTypes)
	defer ix.bus.PhaseCollectionCompleted(eventbus.PhaseTypes)

	ix.typeMu.Lock()
	for _, rec := range ix.extractedTypes {
		if ix.config.ShowCImportedTypes == false && rec.IsCImported {
			continue
		}
		if _, exists := ix.allTypeDefinitions[rec.TypeName]; exists {
			err := fmt.Errorf("duplicate type definition for %q", rec.TypeName)
			ix.bus.ProcessingFailed(eventbus.PhaseTypes, err)
			ix.recordFailure(err)
			continue
		}
		td := &definition.TypeDefinition{Type: rec, TypeName: rec.TypeName}
		ix.allTypeDefinitions[rec.TypeName] = td
		ix.typeNameOrder = append(ix.typeNameOrder, rec.TypeName)
	}

	for _, name := range ix.typeNameOrder {
		ix.linkTypeParent(ix.allTypeDefinitions[name])
	}
	ix.typeMu.Unlock()

	for _, name := range ix.typeNameOrder {
		td := ix.allTypeDefinitions[name]
		switch {
		case td.Parent == nil && td.ParentContext == nil:
			ix.typeMu.Lock()
			ix.rootTypeDefinitions = append(ix.rootTypeDefinitions, td)
			ix.typeMu.Unlock()
		case td.ParentContext != nil &&
			(td.ParentContext.Kind == definition.ParentContextExtension || td.ParentContext.Kind == definition.ParentContextSymbol):
			ix.synthesizeTypeExtension(td)
		}
	}

	return nil
}

// linkTypeParent resolves td's single immediate parent reference per
// spec.md §4.2 Phase 1 step 3. Must be called with typeMu held.
func (ix *Indexer) linkTypeParent(td *definition.TypeDefinition) {
	parent := td.Type.Parent
	switch parent.Kind {
	case metadata.ContextRefType:
		if parentDef, ok := ix.allTypeDefinitions[parent.TypeName]; ok {
			td.Parent = parentDef
			parentDef.TypeChildren = append(parentDef.TypeChildren, td)
			return
		}
		td.ParentContext = &definition.ParentContext{Kind: definition.ParentContextType, TypeName: parent.TypeName}
	case metadata.ContextRefExtension:
		name := ""
		if parent.Extension != nil {
			name = parent.Extension.ExtendedTypeName
		}
		td.ParentContext = &definition.ParentContext{Kind: definition.ParentContextExtension, Extension: name}
	case metadata.ContextRefSymbol:
		td.ParentContext = &definition.ParentContext{Kind: definition.ParentContextSymbol, Symbol: parent.Symbol}
	}
}

// synthesizeTypeExtension wraps td in an ExtensionDefinition keyed by its
// resolved extension target (or, for a stripped symbol chain, the bare
// symbol name), per spec.md §4.2 Phase 1's final paragraph.
func (ix *Indexer) synthesizeTypeExtension(td *definition.TypeDefinition) {
	ext := ix.extensionForContextRef(td.Type.Parent, definition.ExtensionOfType)
	ix.extensionMu.Lock()
	ext.Types = append(ext.Types, td)
	ix.extensionMu.Unlock()
}

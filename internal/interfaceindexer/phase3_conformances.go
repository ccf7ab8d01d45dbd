package interfaceindexer

import (
	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/metadata"
)

// assocKey identifies one (typeName, protocolName) pair for the
// associated-type consumption pass.
type assocKey struct {
	typeName     string
	protocolName string
}

// runConformances is Phase 3 (spec.md §4.2): index conformances and
// associated types by (typeName, protocolName), then synthesize one
// ExtensionDefinition per conforming pair, consuming at most one matching
// associated-type record per pair (exclusive consumption, spec.md §8's
// testable property on ConformanceExtensionDefinition).
func (ix *Indexer) runConformances() error {
	ix.bus.PhaseCollectionStarted(eventbus.PhaseConformances)
	defer ix.bus.PhaseCollectionCompleted(eventbus.PhaseConformances)

	ix.conformanceMu.Lock()
	for _, rec := range ix.extractedConformances {
		if _, ok := ix.protocolConformancesByTypeName[rec.TypeName]; !ok {
			ix.protocolConformancesByTypeName[rec.TypeName] = map[string]metadata.ProtocolConformanceRecord{}
			ix.conformanceTypeNameOrder = append(ix.conformanceTypeNameOrder, rec.TypeName)
		}
		if _, ok := ix.protocolConformancesByTypeName[rec.TypeName][rec.ProtocolName]; !ok {
			ix.conformanceProtocolOrderByType[rec.TypeName] = append(ix.conformanceProtocolOrderByType[rec.TypeName], rec.ProtocolName)
		}
		ix.protocolConformancesByTypeName[rec.TypeName][rec.ProtocolName] = rec

		if _, ok := ix.conformingTypesByProtocolName[rec.ProtocolName]; !ok {
			ix.conformingProtocolOrder = append(ix.conformingProtocolOrder, rec.ProtocolName)
		}
		ix.conformingTypesByProtocolName[rec.ProtocolName] = appendUnique(ix.conformingTypesByProtocolName[rec.ProtocolName], rec.TypeName)
	}

	// assocByKey holds the still-unconsumed associated-type records per
	// (typeName, protocolName) pair, preserving insertion order; assocKeyOrder
	// preserves first-contact order across keys for the final leftover pass.
	assocByKey := map[assocKey][]metadata.AssociatedTypeRecord{}
	var assocKeyOrder []assocKey
	for _, rec := range ix.extractedAssocTypes {
		k := assocKey{typeName: rec.TypeName, protocolName: rec.ProtocolName}
		if _, ok := ix.associatedTypesByTypeName[rec.TypeName]; !ok {
			ix.associatedTypesByTypeName[rec.TypeName] = map[string]metadata.AssociatedTypeRecord{}
		}
		ix.associatedTypesByTypeName[rec.TypeName][rec.ProtocolName] = rec
		if _, ok := assocByKey[k]; !ok {
			assocKeyOrder = append(assocKeyOrder, k)
		}
		assocByKey[k] = append(assocByKey[k], rec)
	}

	typeNameOrder := append([]string(nil), ix.conformanceTypeNameOrder...)
	ix.conformanceMu.Unlock()

	for _, typeName := range typeNameOrder {
		ix.conformanceMu.Lock()
		byProtocol := ix.protocolConformancesByTypeName[typeName]
		protocolOrder := append([]string(nil), ix.conformanceProtocolOrderByType[typeName]...)
		ix.conformanceMu.Unlock()

		for _, protocolName := range protocolOrder {
			rec := byProtocol[protocolName]
			k := assocKey{typeName: typeName, protocolName: protocolName}
			var assoc *metadata.AssociatedTypeRecord
			if remaining := assocByKey[k]; len(remaining) > 0 {
				a := remaining[0]
				assoc = &a
				assocByKey[k] = remaining[1:]
			}
			ix.synthesizeConformanceExtension(typeName, rec, assoc)
		}
	}

	// Any associated-type record left unconsumed yields an extension
	// carrying only the associated type (spec.md §8 scenario 4), visited in
	// first-contact order.
	for _, k := range assocKeyOrder {
		for _, a := range assocByKey[k] {
			rec := a
			ix.synthesizeConformanceExtension(k.typeName, metadata.ProtocolConformanceRecord{}, &rec)
		}
	}

	return nil
}

func (ix *Indexer) synthesizeConformanceExtension(typeName string, conformance metadata.ProtocolConformanceRecord, assoc *metadata.AssociatedTypeRecord) {
	var genSig = conformance.ConditionalRequirements

	ext := &definition.ExtensionDefinition{
		ExtensionName:    typeName,
		ExtensionKind:    definition.ExtensionOfType,
		GenericSignature: genSig,
	}
	if conformance.ProtocolName != "" {
		c := conformance
		ext.ProtocolConformance = &c
	}
	ext.AssociatedType = assoc

	ix.extensionMu.Lock()
	ix.typeExtensionDefinitions = append(ix.typeExtensionDefinitions, ext)
	ix.extensionMu.Unlock()
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

package interfaceindexer

import (
	"github.com/swiftface/swiftface/internal/eventbus"
	"github.com/swiftface/swiftface/internal/metadata"
)

// runExtraction is Phase 0. Each of the four record lists is independent:
// a decode failure in one substitutes an empty list and emits
// extractionFailed, never aborting the other three (spec.md §4.2, §7 error
// kind 1).
func (ix *Indexer) runExtraction() error {
	ix.extractedTypes = extractSection(ix.bus, "types", func() metadata.ExtractionResult[metadata.TypeRecord] {
		return ix.reader.Types(ix.img, ix.config.ShowCImportedTypes)
	})
	ix.extractedProtocols = extractSection(ix.bus, "protocols", func() metadata.ExtractionResult[metadata.ProtocolRecord] {
		return ix.reader.Protocols(ix.img)
	})
	ix.extractedConformances = extractSection(ix.bus, "conformances", func() metadata.ExtractionResult[metadata.ProtocolConformanceRecord] {
		return ix.reader.Conformances(ix.img)
	})
	ix.extractedAssocTypes = extractSection(ix.bus, "associatedTypes", func() metadata.ExtractionResult[metadata.AssociatedTypeRecord] {
		return ix.reader.AssociatedTypes(ix.img)
	})

	// Extraction is never fatal to the overall build: individual section
	// failures have already been reported as events above.
	return nil
}

// extractSection wraps one section's decode in its own started/
// completed-or-failed event pair and unwraps its ExtractionResult, logging
// failure as an event rather than propagating the error.
func extractSection[T any](bus *eventbus.Bus, section string, fn func() metadata.ExtractionResult[T]) []T {
	bus.ExtractionStarted(section)
	res := fn()
	if res.Err != nil {
		bus.ExtractionFailed(section, res.Err)
		return nil
	}
	bus.ExtractionCompleted(section)
	return res.Records
}

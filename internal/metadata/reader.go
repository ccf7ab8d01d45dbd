package metadata

import (
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

// Decoder is the out-of-scope "metadata reader" collaborator: it decodes
// the on-disk context-descriptor layout of one section family and produces
// the record shape this package exports. GoMachODecoder is the production
// implementation, backed by github.com/blacktop/go-macho; tests supply a
// fake.
type Decoder interface {
	DecodeTypes(img *machoimage.Image) ([]TypeRecord, error)
	DecodeProtocols(img *machoimage.Image) ([]ProtocolRecord, error)
	DecodeConformances(img *machoimage.Image) ([]ProtocolConformanceRecord, error)
	DecodeAssociatedTypes(img *machoimage.Image) ([]AssociatedTypeRecord, error)
}

// Reader extracts the four record families from an Image, one independent
// section at a time, per the Phase 0 extraction contract (SPEC_FULL.md
// §1.4): a failure in one section never prevents the others from being
// read.
type Reader struct {
	decoder Decoder
}

// NewReader constructs a Reader over the given Decoder.
func NewReader(decoder Decoder) *Reader {
	return &Reader{decoder: decoder}
}

// ExtractionResult holds one section family's outcome: either a record
// list or an error, never both populated meaningfully.
type ExtractionResult[T any] struct {
	Records []T
	Err     error
}

// Types reads the __swift5_types section.
func (r *Reader) Types(img *machoimage.Image, showCImportedTypes bool) ExtractionResult[TypeRecord] {
	records, err := r.decoder.DecodeTypes(img)
	if err != nil {
		return ExtractionResult[TypeRecord]{Err: err}
	}
	if showCImportedTypes {
		return ExtractionResult[TypeRecord]{Records: records}
	}
	filtered := records[:0:0]
	for _, rec := range records {
		if !rec.IsCImported {
			filtered = append(filtered, rec)
		}
	}
	return ExtractionResult[TypeRecord]{Records: filtered}
}

// Protocols reads the __swift5_protos section.
func (r *Reader) Protocols(img *machoimage.Image) ExtractionResult[ProtocolRecord] {
	records, err := r.decoder.DecodeProtocols(img)
	return ExtractionResult[ProtocolRecord]{Records: records, Err: err}
}

// Conformances reads the __swift5_proto section.
func (r *Reader) Conformances(img *machoimage.Image) ExtractionResult[ProtocolConformanceRecord] {
	records, err := r.decoder.DecodeConformances(img)
	return ExtractionResult[ProtocolConformanceRecord]{Records: records, Err: err}
}

// AssociatedTypes reads the __swift5_assocty section.
func (r *Reader) AssociatedTypes(img *machoimage.Image) ExtractionResult[AssociatedTypeRecord] {
	records, err := r.decoder.DecodeAssociatedTypes(img)
	return ExtractionResult[AssociatedTypeRecord]{Records: records, Err: err}
}

// DemangleContext demangles a mangled context-reference string (an
// extension's extended-type name, a conformance's conditional-requirement
// signature, ...) into a Node tree. It is a thin pass-through to
// internal/mangle, named here because spec.md §4.1 describes this as a
// service the metadata reader provides to the Indexer.
func DemangleContext(mangledName string) (*mangle.Node, error) {
	return mangle.Demangle(mangledName)
}

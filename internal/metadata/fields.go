package metadata

import (
	"fmt"

	"github.com/swiftface/swiftface/internal/machoimage"
)

// FieldRecord is one entry of a type's field descriptor: one stored
// property or enum case.
type FieldRecord struct {
	Name           string
	MangledType    string
	IsVariable     bool // record flag: `var` vs `let`
	IsIndirectCase bool // record flag: indirect enum case
}

// MethodDescriptorRecord is one entry of a class's method descriptor,
// override table, or default-override table (SPEC_FULL.md §4).
type MethodDescriptorRecord struct {
	Offset               int
	ImplementationSymbol string
	IsOverride           bool
	IsDefaultOverride    bool
}

// fieldAndMethodDecoder is the subset of Decoder that reads per-type
// descriptors rather than whole-section lists; split out because, unlike
// the four section families, these are addressed by the owning type's
// descriptor offset.
type fieldAndMethodDecoder interface {
	DecodeFields(img *machoimage.Image, typeOffset int) ([]FieldRecord, error)
	DecodeMethodDescriptors(img *machoimage.Image, typeOffset int) ([]MethodDescriptorRecord, error)
}

// Fields reads the field descriptor for the type at typeOffset.
func (r *Reader) Fields(img *machoimage.Image, typeOffset int) ([]FieldRecord, error) {
	d, ok := r.decoder.(fieldAndMethodDecoder)
	if !ok {
		return nil, fmt.Errorf("metadata: decoder does not support field descriptors")
	}
	return d.DecodeFields(img, typeOffset)
}

// MethodDescriptors reads the method descriptor, override, and
// default-override tables for the class at typeOffset.
func (r *Reader) MethodDescriptors(img *machoimage.Image, typeOffset int) ([]MethodDescriptorRecord, error) {
	d, ok := r.decoder.(fieldAndMethodDecoder)
	if !ok {
		return nil, fmt.Errorf("metadata: decoder does not support method descriptors")
	}
	return d.DecodeMethodDescriptors(img, typeOffset)
}

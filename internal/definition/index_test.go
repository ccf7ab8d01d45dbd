package definition

import (
	"testing"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// fakeDecoder is a minimal metadata.Decoder + field/method descriptor
// reader for exercising TypeDefinition.Index without a real Mach-O image.
type fakeDecoder struct {
	fields  []metadata.FieldRecord
	methods []metadata.MethodDescriptorRecord
}

func (fakeDecoder) DecodeTypes(*machoimage.Image) ([]metadata.TypeRecord, error)       { return nil, nil }
func (fakeDecoder) DecodeProtocols(*machoimage.Image) ([]metadata.ProtocolRecord, error) { return nil, nil }
func (fakeDecoder) DecodeConformances(*machoimage.Image) ([]metadata.ProtocolConformanceRecord, error) {
	return nil, nil
}
func (fakeDecoder) DecodeAssociatedTypes(*machoimage.Image) ([]metadata.AssociatedTypeRecord, error) {
	return nil, nil
}
func (f fakeDecoder) DecodeFields(*machoimage.Image, int) ([]metadata.FieldRecord, error) {
	return f.fields, nil
}
func (f fakeDecoder) DecodeMethodDescriptors(*machoimage.Image, int) ([]metadata.MethodDescriptorRecord, error) {
	return f.methods, nil
}

func sym(offset int, node *mangle.Node) machoimage.Symbol {
	return machoimage.Symbol{Offset: offset, Name: mangle.Mangle(node), NList: &machoimage.NList{}}
}

// TestTypeDefinitionIndexIsIdempotent builds a struct with one instance
// function member and checks Index() populates Functions exactly once no
// matter how many times it's invoked.
func TestTypeDefinitionIndexIsIdempotent(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	typeDecl := mangle.NewNode(mangle.KindStructure, "", module, mangle.NewNode(mangle.KindIdentifier, "Widget"))
	fn := mangle.NewNode(mangle.KindFunction, "", typeDecl, mangle.NewNode(mangle.KindIdentifier, "spin"))
	root := mangle.NewNode(mangle.KindGlobal, "", fn)

	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{Ordinary: []machoimage.Symbol{sym(10, root)}})

	td := &TypeDefinition{
		Type:     metadata.TypeRecord{Offset: 10, TypeName: "Kit.Widget", Kind: mangle.KindStructure},
		TypeName: "Kit.Widget",
	}
	reader := metadata.NewReader(fakeDecoder{})

	if err := td.Index(storage, reader, nil); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(td.Functions) != 1 || td.Functions[0].Name != "spin" {
		t.Fatalf("expected one function named spin, got %+v", td.Functions)
	}

	// Mutate a field that Index would overwrite if it reran, then call
	// again: the mutation must survive, proving the second call is a no-op.
	td.Functions[0].Name = "sentinel"
	if err := td.Index(storage, reader, nil); err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if td.Functions[0].Name != "sentinel" {
		t.Fatalf("Index ran twice: expected sentinel to survive, got %q", td.Functions[0].Name)
	}
}

func TestTypeDefinitionIndexFieldsStripsLazyPrefixAndFlagsWeak(t *testing.T) {
	weakType := mangle.NewNode(mangle.KindWeak, "", mangle.NewNode(mangle.KindIdentifier, "Delegate"))

	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{})
	td := &TypeDefinition{Type: metadata.TypeRecord{Offset: 20, TypeName: "Kit.Widget", Kind: mangle.KindStructure}, TypeName: "Kit.Widget"}
	reader := metadata.NewReader(fakeDecoder{
		fields: []metadata.FieldRecord{
			{Name: "$__lazy_storage_$_delegate", MangledType: mangle.Mangle(weakType), IsVariable: true},
		},
	})

	if err := td.Index(storage, reader, nil); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(td.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(td.Fields))
	}
	f := td.Fields[0]
	if f.Name != "delegate" || !f.IsLazy || !f.IsWeak || !f.IsVariable {
		t.Fatalf("unexpected field: %+v", f)
	}
}

func TestExtensionIndexAppendsMissingWitnessWithNoCrash(t *testing.T) {
	targetModule := mangle.NewNode(mangle.KindModule, "Kit")
	target := mangle.NewNode(mangle.KindStructure, "", targetModule, mangle.NewNode(mangle.KindIdentifier, "Widget"))

	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{})
	ext := &ExtensionDefinition{
		ExtensionName: "Kit.Widget",
		TargetNode:    target,
		ProtocolConformance: &metadata.ProtocolConformanceRecord{
			ResilientWitnesses: []metadata.ResilientWitness{
				{RequirementName: "draw()"},
			},
		},
	}

	ext.Index(storage)

	if len(ext.MissingSymbolWitnesses) != 1 {
		t.Fatalf("expected 1 missing witness, got %d", len(ext.MissingSymbolWitnesses))
	}
	if ext.MissingSymbolWitnesses[0].RequirementName != "draw()" {
		t.Fatalf("unexpected requirement name: %+v", ext.MissingSymbolWitnesses[0])
	}

	// Idempotent: calling again must not duplicate the missing-witness entry.
	ext.Index(storage)
	if len(ext.MissingSymbolWitnesses) != 1 {
		t.Fatalf("Index ran twice: expected 1 missing witness, got %d", len(ext.MissingSymbolWitnesses))
	}
}

package printer

import (
	"strings"
	"testing"

	"github.com/hexops/autogold"

	"github.com/swiftface/swiftface/internal/definition"
	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
	"github.com/swiftface/swiftface/internal/metadata"
	"github.com/swiftface/swiftface/internal/symbolindex"
)

// fakeDecoder is the same minimal metadata.Decoder fake used throughout
// internal/definition's own tests.
type fakeDecoder struct {
	fields []metadata.FieldRecord
}

func (fakeDecoder) DecodeTypes(*machoimage.Image) ([]metadata.TypeRecord, error) { return nil, nil }
func (fakeDecoder) DecodeProtocols(*machoimage.Image) ([]metadata.ProtocolRecord, error) {
	return nil, nil
}
func (fakeDecoder) DecodeConformances(*machoimage.Image) ([]metadata.ProtocolConformanceRecord, error) {
	return nil, nil
}
func (fakeDecoder) DecodeAssociatedTypes(*machoimage.Image) ([]metadata.AssociatedTypeRecord, error) {
	return nil, nil
}
func (f fakeDecoder) DecodeFields(*machoimage.Image, int) ([]metadata.FieldRecord, error) {
	return f.fields, nil
}
func (fakeDecoder) DecodeMethodDescriptors(*machoimage.Image, int) ([]metadata.MethodDescriptorRecord, error) {
	return nil, nil
}

func sym(offset int, node *mangle.Node) machoimage.Symbol {
	return machoimage.Symbol{Offset: offset, Name: mangle.Mangle(node), NList: &machoimage.NList{}}
}

type fakeModule struct {
	types      []*definition.TypeDefinition
	protocols  []*definition.ProtocolDefinition
	extensions []*definition.ExtensionDefinition
	vars       []definition.VariableDefinition
	funcs      []definition.FunctionDefinition
}

func (m fakeModule) RootTypeDefinitions() []*definition.TypeDefinition           { return m.types }
func (m fakeModule) RootProtocolDefinitions() []*definition.ProtocolDefinition   { return m.protocols }
func (m fakeModule) TypeExtensionDefinitions() []*definition.ExtensionDefinition { return m.extensions }
func (m fakeModule) GlobalVariableDefinitions() []definition.VariableDefinition  { return m.vars }
func (m fakeModule) GlobalFunctionDefinitions() []definition.FunctionDefinition  { return m.funcs }

func chunkText(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestPrintTypeRendersStructWithFunction(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	typeDecl := mangle.NewNode(mangle.KindStructure, "", module, mangle.NewNode(mangle.KindIdentifier, "Widget"))
	fn := mangle.NewNode(mangle.KindFunction, "", typeDecl, mangle.NewNode(mangle.KindIdentifier, "spin"))
	root := mangle.NewNode(mangle.KindGlobal, "", fn)

	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{Ordinary: []machoimage.Symbol{sym(10, root)}})
	reader := metadata.NewReader(fakeDecoder{})

	td := &definition.TypeDefinition{
		Type:     metadata.TypeRecord{Offset: 10, TypeName: "Kit.Widget", Kind: mangle.KindStructure},
		TypeName: "Kit.Widget",
	}

	p := New(storage, reader, nil, Options{})
	chunks := p.Print(fakeModule{types: []*definition.TypeDefinition{td}})

	text := chunkText(chunks)
	if !strings.Contains(text, "struct Kit.Widget {") {
		t.Fatalf("expected struct header, got: %s", text)
	}
	if !strings.Contains(text, "func spin()") {
		t.Fatalf("expected spin() rendered, got: %s", text)
	}
}

func TestPrintTypeEmitsOffsetCommentWhenEnabled(t *testing.T) {
	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{})
	reader := metadata.NewReader(fakeDecoder{})

	td := &definition.TypeDefinition{
		Type:     metadata.TypeRecord{Offset: 0x20, TypeName: "Kit.Widget", Kind: mangle.KindStructure},
		TypeName: "Kit.Widget",
	}

	p := New(storage, reader, nil, Options{EmitOffsetComments: true})
	chunks := p.Print(fakeModule{types: []*definition.TypeDefinition{td}})

	if !strings.Contains(chunkText(chunks), "0x20") {
		t.Fatalf("expected offset comment, got: %s", chunkText(chunks))
	}
}

func TestPrintExtensionRendersMissingWitness(t *testing.T) {
	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{})
	reader := metadata.NewReader(fakeDecoder{})

	targetModule := mangle.NewNode(mangle.KindModule, "Kit")
	target := mangle.NewNode(mangle.KindStructure, "", targetModule, mangle.NewNode(mangle.KindIdentifier, "Widget"))

	ext := &definition.ExtensionDefinition{
		ExtensionName: "Kit.Widget",
		TargetNode:    target,
		ProtocolConformance: &metadata.ProtocolConformanceRecord{
			ProtocolName: "Kit.Drawable",
			ResilientWitnesses: []metadata.ResilientWitness{
				{RequirementName: "draw()"},
			},
		},
	}

	p := New(storage, reader, nil, Options{})
	chunks := p.Print(fakeModule{extensions: []*definition.ExtensionDefinition{ext}})

	text := chunkText(chunks)
	if !strings.Contains(text, "extension Kit.Widget: Kit.Drawable {") {
		t.Fatalf("expected extension header, got: %s", text)
	}
	if !strings.Contains(text, "missing witness for draw()") {
		t.Fatalf("expected missing witness comment, got: %s", text)
	}
}

// TestPrintTypeGoldenRendering pins the full rendered text of a small
// struct-with-stored-property fixture, the same golden-snapshot style
// sourcegraph-lsif-go's own doctomarkdown/hover tests use via autogold.
func TestPrintTypeGoldenRendering(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	typeDecl := mangle.NewNode(mangle.KindStructure, "", module, mangle.NewNode(mangle.KindIdentifier, "Widget"))
	getter := mangle.NewNode(mangle.KindGetter, "",
		mangle.NewNode(mangle.KindVariable, "", typeDecl, mangle.NewNode(mangle.KindIdentifier, "name")))
	root := mangle.NewNode(mangle.KindGlobal, "", getter)

	storage := symbolindex.BuildFromSymbols(symbolindex.BuildInput{Ordinary: []machoimage.Symbol{sym(16, root)}})
	reader := metadata.NewReader(fakeDecoder{
		fields: []metadata.FieldRecord{{Name: "name", MangledType: "Swift.String", IsVariable: true}},
	})

	td := &definition.TypeDefinition{
		Type:     metadata.TypeRecord{Offset: 16, TypeName: "Kit.Widget", Kind: mangle.KindStructure, FieldOffsets: []int32{0}},
		TypeName: "Kit.Widget",
	}

	p := New(storage, reader, nil, Options{})
	text := chunkText(p.Print(fakeModule{types: []*definition.TypeDefinition{td}}))

	autogold.Want("struct-with-stored-property", "struct Kit.Widget {\n    var name: Swift.String\n}\n").Equal(t, text)
}

func TestBuilderCoalescesAdjacentSameTypeChunks(t *testing.T) {
	b := &builder{}
	b.emit("a", SemanticKeyword)
	b.emit("b", SemanticKeyword)
	b.emit("c", SemanticTypeName)

	chunks := b.chunkSlice()
	if len(chunks) != 2 {
		t.Fatalf("expected 2 coalesced chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "ab" {
		t.Fatalf("expected coalesced %q, got %q", "ab", chunks[0].Text)
	}
}

package symbolindex

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/swiftface/swiftface/internal/machoimage"
	"github.com/swiftface/swiftface/internal/mangle"
)

func sym(offset int, node *mangle.Node, external bool) machoimage.Symbol {
	return machoimage.Symbol{
		Offset: offset,
		Name:   mangle.Mangle(node),
		NList:  &machoimage.NList{External: external},
	}
}

// TestExtensionStaticFunctionMember is scenario 1 of SPEC_FULL.md §1.7:
// global -> static -> function(extension(X, Y), ...) must land under
// function(inExtension=true, isStatic=true) keyed by Y's printed name.
func TestExtensionStaticFunctionMember(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	extendedModule := mangle.NewNode(mangle.KindModule, "Kit")
	x := mangle.NewNode(mangle.KindStructure, "", module, mangle.NewNode(mangle.KindIdentifier, "X"))
	y := mangle.NewNode(mangle.KindStructure, "", extendedModule, mangle.NewNode(mangle.KindIdentifier, "Y"))
	ext := mangle.NewNode(mangle.KindExtension, "", x, y)
	fn := mangle.NewNode(mangle.KindFunction, "", ext, mangle.NewNode(mangle.KindIdentifier, "doThing"))
	static := mangle.NewNode(mangle.KindStatic, "", fn)
	root := mangle.NewNode(mangle.KindGlobal, "", static)

	s := BuildFromSymbols(BuildInput{Ordinary: []machoimage.Symbol{sym(100, root, false)}})

	mk := MemberKind{Syntax: MemberFunction, InExtension: true, IsStatic: true}
	got := s.MemberSymbolsForType(QueryMembers, "Kit.Y", mk)
	if len(got) != 1 {
		t.Fatalf("expected 1 member symbol, got %d", len(got))
	}
}

// TestGlobalStoredVariable is scenario 2: a stored global variable yields
// one globalsByKind entry and populates no member bucket.
func TestGlobalStoredVariable(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	variable := mangle.NewNode(mangle.KindVariable, "", module, mangle.NewNode(mangle.KindIdentifier, "counter"))
	root := mangle.NewNode(mangle.KindGlobal, "", variable)

	s := BuildFromSymbols(BuildInput{Ordinary: []machoimage.Symbol{sym(200, root, false)}})

	got := s.GlobalsByKind(globalVariable(true))
	if len(got) != 1 {
		t.Fatalf("expected 1 global variable, got %d", len(got))
	}

	if total := len(s.membersByKind); total != 0 {
		t.Fatalf("expected no member buckets populated, got %d", total)
	}
}

func TestOffsetZeroNeverBiasedByCache(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	fn := mangle.NewNode(mangle.KindFunction, "", module, mangle.NewNode(mangle.KindIdentifier, "f"))
	root := mangle.NewNode(mangle.KindGlobal, "", fn)

	s := BuildFromSymbols(BuildInput{
		Ordinary:             []machoimage.Symbol{sym(0, root, false)},
		HasSharedCache:       true,
		IsFileRepresentation: true,
		SharedRegionStart:    0x1000,
	})

	// Offset 0 must appear exactly once (no biased duplicate at -0x1000).
	if got := s.SymbolsAtOffset(0); len(got) != 1 {
		t.Fatalf("expected exactly one symbol at offset 0, got %d", len(got))
	}
	if got := s.SymbolsAtOffset(-0x1000); len(got) != 0 {
		t.Fatalf("expected no biased entry for offset==0 symbol, got %d", len(got))
	}
}

func TestDeterministicIterationOrder(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	var syms []machoimage.Symbol
	for i := 0; i < 5; i++ {
		fn := mangle.NewNode(mangle.KindFunction, "", module, mangle.NewNode(mangle.KindIdentifier, string(rune('a'+i))))
		syms = append(syms, sym(i, mangle.NewNode(mangle.KindGlobal, "", fn), false))
	}

	s1 := BuildFromSymbols(BuildInput{Ordinary: syms})
	s2 := BuildFromSymbols(BuildInput{Ordinary: syms})

	g1 := s1.GlobalsByKind(GlobalFunction)
	g2 := s2.GlobalsByKind(GlobalFunction)

	names := func(syms []*IndexedSymbol) []string {
		out := make([]string, len(syms))
		for i, s := range syms {
			out[i] = s.Symbol.Name
		}
		return out
	}

	if diff := cmp.Diff(names(g1), names(g2)); diff != "" {
		t.Fatalf("two builds over the same input disagreed on iteration order (-build1 +build2):\n%s", diff)
	}
}

func TestConsumedLatchIsObservationalOnly(t *testing.T) {
	module := mangle.NewNode(mangle.KindModule, "Kit")
	fn := mangle.NewNode(mangle.KindFunction, "", module, mangle.NewNode(mangle.KindIdentifier, "f"))
	root := mangle.NewNode(mangle.KindGlobal, "", fn)
	s := BuildFromSymbols(BuildInput{Ordinary: []machoimage.Symbol{sym(1, root, false)}})

	got := s.GlobalsByKind(GlobalFunction)
	if len(got) != 1 {
		t.Fatalf("expected 1 symbol")
	}
	if !got[0].Consumed() {
		t.Fatalf("expected symbol to be marked consumed after surfacing")
	}

	// Querying again must still return the same symbol.
	again := s.GlobalsByKind(GlobalFunction)
	if len(again) != 1 || again[0].Symbol.Name != got[0].Symbol.Name {
		t.Fatalf("consumed latch must not change query results")
	}
}

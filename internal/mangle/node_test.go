package mangle

import "testing"

func TestDemangleRoundTrip(t *testing.T) {
	module := NewNode(KindModule, "MyModule")
	ident := NewNode(KindIdentifier, "Foo")
	class := NewNode(KindClass, "", module, ident)
	global := NewNode(KindGlobal, "", class)

	mangled := Mangle(global)
	if !HasManglingPrefix(mangled) {
		t.Fatalf("Mangle output %q missing mangling prefix", mangled)
	}

	got, err := Demangle(mangled)
	if err != nil {
		t.Fatalf("Demangle: %v", err)
	}
	if !got.Equal(global) {
		t.Fatalf("round-tripped node not structurally equal:\nwant %s\ngot  %s", global.StructuralKey(), got.StructuralKey())
	}
	if got.ID() == global.ID() {
		t.Fatalf("expected distinct identity for separately-parsed node")
	}
}

func TestStructuralEqualityIgnoresIdentity(t *testing.T) {
	a := NewNode(KindIdentifier, "Same")
	b := NewNode(KindIdentifier, "Same")
	if a == b {
		t.Fatalf("expected distinct pointers")
	}
	if !a.Equal(b) {
		t.Fatalf("expected structural equality")
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal hashes for structurally equal nodes")
	}
	if a.StructuralKey() != b.StructuralKey() {
		t.Fatalf("expected equal structural keys")
	}
}

func TestPrintInterfaceTypeBuilderOnly(t *testing.T) {
	module := NewNode(KindModule, "Kit")
	outer := NewNode(KindClass, "", module, NewNode(KindIdentifier, "Outer"))
	inner := NewNode(KindStructure, "", outer, NewNode(KindIdentifier, "Inner"))

	if got, want := inner.Print(InterfaceTypeBuilderOnly), "Kit.Outer.Inner"; got != want {
		t.Fatalf("Print() = %q, want %q", got, want)
	}
}

func TestHasManglingPrefix(t *testing.T) {
	cases := map[string]bool{
		"$s3Kit3FooC": true,
		"_$s3Kit3FooC": true,
		"unrelated":    false,
		"":             false,
	}
	for in, want := range cases {
		if got := HasManglingPrefix(in); got != want {
			t.Errorf("HasManglingPrefix(%q) = %v, want %v", in, got, want)
		}
	}
}

package mangle

import "strings"

// PrintOptions controls Node.Print. InterfaceTypeBuilderOnly selects the
// canonical, decoration-free rendering used as the map key for type-name
// lookups throughout the Symbol Index (see the GLOSSARY entry
// "Interface-type-builder-only printing").
type PrintOptions struct {
	InterfaceTypeBuilderOnly bool
}

// InterfaceTypeBuilderOnly is the shared, zero-allocation-friendly option
// value used everywhere a type name is computed for indexing purposes.
var InterfaceTypeBuilderOnly = PrintOptions{InterfaceTypeBuilderOnly: true}

// Print renders n according to opts. For a type node (kind `type` wrapping
// a nominal declaration, or the nominal declaration itself) this walks the
// context chain and joins identifiers with '.', dropping accessor and
// attribute decorations when InterfaceTypeBuilderOnly is set.
func (n *Node) Print(opts PrintOptions) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindType:
		return n.FirstChild().Print(opts)
	case KindModule:
		return n.Text
	case KindIdentifier, KindPrivateDeclName, KindPrefixOperator, KindInfixOperator, KindPostfixOperator:
		return n.Text
	case KindEnum, KindStructure, KindClass, KindProtocol, KindTypeAlias:
		return joinContext(n, opts)
	case KindExtension:
		// children: [extendedContext, identifierOfExtendedType, ...]
		if len(n.Children) >= 2 {
			return n.Children[1].Print(opts)
		}
		return joinContext(n, opts)
	case KindStatic:
		return n.FirstChild().Print(opts)
	case KindLabelList:
		var parts []string
		for _, c := range n.Children {
			parts = append(parts, c.Print(opts))
		}
		return strings.Join(parts, ", ")
	default:
		if len(n.Children) > 0 {
			return n.FirstChild().Print(opts)
		}
		return n.Text
	}
}

// joinContext renders a nominal declaration node as a dotted path of its
// context chain followed by its own name: Module.Outer.Inner.
func joinContext(n *Node, opts PrintOptions) string {
	var parts []string
	for cur := n; cur != nil; {
		switch cur.Kind {
		case KindEnum, KindStructure, KindClass, KindProtocol, KindTypeAlias:
			if len(cur.Children) < 2 {
				// malformed: no [context, identifier] shape; fall back to text.
				parts = append([]string{cur.Text}, parts...)
				cur = nil
				continue
			}
			parts = append([]string{cur.Children[1].Print(opts)}, parts...)
			cur = cur.Children[0]
		case KindModule:
			parts = append([]string{cur.Text}, parts...)
			cur = nil
		case KindExtension:
			if len(cur.Children) >= 1 {
				cur = cur.Children[0]
				continue
			}
			cur = nil
		default:
			cur = nil
		}
	}
	return strings.Join(parts, ".")
}

package mangle

import (
	"fmt"
	"strings"
)

// ManglingPrefix is the fixed prefix that identifies a language symbol.
const ManglingPrefix = "$s"

// HasManglingPrefix reports whether name is a language symbol: it begins
// with the mangling prefix, optionally preceded by a single leading
// underscore (the platform symbol-table convention on Mach-O).
func HasManglingPrefix(name string) bool {
	return strings.HasPrefix(name, ManglingPrefix) || strings.HasPrefix(name, "_"+ManglingPrefix)
}

// Mangle serializes a Node tree back into its mangled-name form. It is the
// inverse of Demangle and is used by tests (and by any caller that needs to
// synthesize a symbol name from a node tree) rather than by the indexing
// pipeline itself.
func Mangle(n *Node) string {
	return ManglingPrefix + n.StructuralKey()
}

// Demangle parses a mangled symbol name into a Node tree.
//
// This is a best-effort reader over the grammar subset the rest of the
// pipeline depends on (see Kind): it accepts exactly the textual form
// produced by Mangle/Node.StructuralKey. A production implementation would
// replace this with a full reader for the language's mangling grammar; full
// mangling fidelity is explicitly out of scope here (see SPEC_FULL.md §1).
func Demangle(name string) (*Node, error) {
	trimmed := strings.TrimPrefix(name, "_")
	body, ok := strings.CutPrefix(trimmed, ManglingPrefix)
	if !ok {
		return nil, fmt.Errorf("mangle: %q does not have the mangling prefix", name)
	}

	p := &parser{input: body}
	p.skipSpace()
	n, err := p.parseNode()
	if err != nil {
		return nil, fmt.Errorf("mangle: demangle %q: %w", name, err)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("mangle: demangle %q: trailing input", name)
	}
	return n, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) parseNode() (*Node, error) {
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if strings.HasPrefix(p.input[p.pos:], "∅") {
		// empty-node marker written by StructuralKey for nil children
		p.pos += len("∅")
		return nil, nil
	}
	if p.input[p.pos] != '(' {
		return nil, fmt.Errorf("expected '(' at position %d", p.pos)
	}
	p.pos++

	kindName, text := p.parseHead()
	kind, ok := kindByName[kindName]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kindName)
	}

	var children []*Node
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated node")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			break
		}
		child, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return NewNode(kind, text, children...), nil
}

// parseHead reads the "KIND" or "KIND:TEXT" token up to the next space or
// closing paren, without consuming the terminator.
func (p *parser) parseHead() (kind, text string) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ' ' && p.input[p.pos] != ')' {
		p.pos++
	}
	head := p.input[start:p.pos]
	if idx := strings.IndexByte(head, ':'); idx >= 0 {
		return head[:idx], head[idx+1:]
	}
	return head, ""
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

package nanolisp

import "strings"

// Print renders a Value back into reader-parseable source text. For
// any value produced by the reader from input free of comments,
// whitespace runs, and reader macros, Print(v) round-trips: parsing it
// again yields a value structurally equal to v (spec.md §8).
func Print(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch n := v.(type) {
	case Str:
		b.WriteByte('"')
		writeEscapedString(b, string(n))
		b.WriteByte('"')
	case *Buffer:
		b.WriteString("@\"")
		writeEscapedString(b, string(n.Bytes))
		b.WriteByte('"')
	case *Tuple:
		b.WriteByte('(')
		for i, it := range n.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeValue(b, it)
		}
		b.WriteByte(')')
	case *Array:
		b.WriteString("@[")
		for i, it := range n.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeValue(b, it)
		}
		b.WriteByte(']')
	case *Struct:
		b.WriteByte('{')
		pairs := n.sortedPairs()
		for i := 0; i < len(pairs); i += 2 {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeValue(b, pairs[i])
			b.WriteByte(' ')
			writeValue(b, pairs[i+1])
		}
		b.WriteByte('}')
	case *Table:
		b.WriteString("@{")
		first := true
		n.entriesSorted(func(k, v Value) {
			if !first {
				b.WriteByte(' ')
			}
			first = false
			writeValue(b, k)
			b.WriteByte(' ')
			writeValue(b, v)
		})
		b.WriteByte('}')
	default:
		b.WriteString(v.String())
	}
}

func writeEscapedString(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
}

package nanolisp

import "strings"

// FrameSnapshot is a read-only view of one entry of the reader's
// internal frame stack, for introspection and error reporting.
type FrameSnapshot struct {
	Type    string
	Line    int
	Column  int
	Pending []Value
	Buffer  string
}

// ReaderState is the structure State() returns: the full frame stack,
// innermost last, plus the string of closing delimiters that would
// balance every currently-open form.
type ReaderState struct {
	Frames     []FrameSnapshot
	Delimiters string
}

func frameTypeName(f *frame) string {
	switch f.kind {
	case fkRoot:
		return "root"
	case fkTuple:
		return "tuple"
	case fkArray:
		return "array"
	case fkStruct:
		return "struct"
	case fkTable:
		return "table"
	case fkStringChar, fkLongString, fkEscape1, fkEscapeHex:
		if f.isBuffer {
			return "buffer"
		}
		return "string"
	case fkComment:
		return "comment"
	case fkToken:
		return "token"
	case fkAtSign:
		return "at"
	case fkReaderMac:
		return f.macroTag
	default:
		return "unknown"
	}
}

// State snapshots the reader's in-progress frame stack.
func (r *Reader) State() ReaderState {
	st := ReaderState{Frames: make([]FrameSnapshot, len(r.frames))}
	for i, f := range r.frames {
		st.Frames[i] = FrameSnapshot{
			Type:    frameTypeName(f),
			Line:    f.loc.Line,
			Column:  f.loc.Column,
			Pending: append([]Value(nil), f.items...),
			Buffer:  string(f.buf),
		}
	}
	st.Delimiters = r.delimiters()
	return st
}

// delimiters reconstructs the sequence of closing bytes that would
// balance every frame currently open, innermost first — i.e. the text
// a caller could append to the input to force every open form closed.
func (r *Reader) delimiters() string {
	var b strings.Builder
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := r.frames[i]
		switch f.kind {
		case fkTuple, fkArray:
			b.WriteByte(f.closeByte)
		case fkStruct, fkTable:
			b.WriteByte('}')
		case fkStringChar:
			b.WriteByte('"')
		case fkLongString:
			n := f.openCount
			if f.counting {
				n = f.backtickRun
			}
			for j := 0; j < n; j++ {
				b.WriteByte('`')
			}
		}
	}
	return b.String()
}

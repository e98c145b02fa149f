package nanolisp

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNotNumber = errors.New("not a number")

// looksLikeNumberStart reports whether tok, judged by its first one
// or two bytes, should be attempted as a number, per
// spec.md §4.1 rule 2: "the first byte is a digit, or a sign/dot
// followed by a digit".
func looksLikeNumberStart(tok string) bool {
	if tok == "" {
		return false
	}
	if isDigit(tok[0]) {
		return true
	}
	if (tok[0] == '+' || tok[0] == '-' || tok[0] == '.') && len(tok) > 1 {
		return isDigit(tok[1])
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// parseNumberToken parses a decimal integer, decimal real (with
// exponent), or radix-prefixed integer ("16rFF"). Overflowing 32 bits
// is reported as a real per spec.md §4.1.
func parseNumberToken(tok string) (Value, error) {
	s := tok
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return nil, errNotNumber
	}

	if idx := strings.IndexByte(s, 'r'); idx > 0 {
		head := s[:idx]
		if allDigits(head) {
			radix, err := strconv.Atoi(head)
			if err == nil && radix >= 2 && radix <= 36 {
				return parseRadixInt(s[idx+1:], radix, neg)
			}
		}
	}

	isReal := strings.ContainsAny(s, ".eE")
	if !isReal {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			if neg {
				v = -v
			}
			return clampOrReal(v), nil
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errNotNumber
	}
	if neg {
		f = -f
	}
	return Real(f), nil
}

func parseRadixInt(digits string, radix int, neg bool) (Value, error) {
	if digits == "" {
		return nil, errNotNumber
	}
	v, err := strconv.ParseInt(digits, radix, 64)
	if err != nil {
		return nil, errNotNumber
	}
	if neg {
		v = -v
	}
	return clampOrReal(v), nil
}

func clampOrReal(v int64) Value {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return Real(float64(v))
	}
	return Int(int32(v))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

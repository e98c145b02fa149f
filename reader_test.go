package nanolisp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 3: @{:a 1 :b 2} reads as a single mutable table with two
// entries.
func TestReader_TableLiteral(t *testing.T) {
	r := NewReader()
	n, err := r.Consume([]byte(`@{:a 1 :b 2}`))
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.NoError(t, r.Eof())
	require.True(t, r.HasMore())

	v, ok := r.Produce()
	require.True(t, ok)
	tbl, ok := v.(*Table)
	require.True(t, ok)
	assert.Equal(t, 2, tbl.Len())

	got := map[string]Value{}
	tbl.Each(func(k, v Value) {
		kw, ok := k.(Keyword)
		require.True(t, ok)
		got[kw.Name()] = v
	})
	assert.Equal(t, Int(1), got["a"])
	assert.Equal(t, Int(2), got["b"])
}

// Scenario 4: mismatched delimiters latch a "mismatched delimiter"
// error and report the column of the offending closer.
func TestReader_MismatchedDelimiter(t *testing.T) {
	r := NewReader()
	_, err := r.Consume([]byte("(foo]"))
	require.Error(t, err)
	assert.Equal(t, StatusError, r.Status())
	_, col := r.Where()
	assert.Equal(t, 5, col)
}

// Scenario 5: a long string delimited by a triple-backtick run
// preserves embedded single backticks; only the closing run of the
// same length terminates it.
func TestReader_LongString(t *testing.T) {
	r := NewReader()
	src := "```abc`def```"
	n, err := r.Consume([]byte(src))
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.NoError(t, r.Eof())

	v, ok := r.Produce()
	require.True(t, ok)
	s, ok := v.(Str)
	require.True(t, ok)
	assert.Equal(t, "abc`def", string(s))
}

// Streaming equivalence: splitting an input at any byte boundary and
// feeding the pieces through two separate Consume calls must produce
// the same value queue as feeding it whole.
func TestReader_StreamingEquivalence(t *testing.T) {
	src := []byte(`(def add (fn [a b] (+ a b))) [1 2 3] :keyword "a string"`)
	whole := NewReader()
	_, err := whole.Consume(src)
	require.NoError(t, err)
	require.NoError(t, whole.Eof())
	var wantValues []string
	for whole.HasMore() {
		v, _ := whole.Produce()
		wantValues = append(wantValues, v.String())
	}

	for split := 0; split <= len(src); split++ {
		parted := NewReader()
		n1, err := parted.Consume(src[:split])
		require.NoError(t, err)
		require.Equal(t, split, n1)
		n2, err := parted.Consume(src[split:])
		require.NoError(t, err)
		require.Equal(t, len(src)-split, n2)
		require.NoError(t, parted.Eof())

		var gotValues []string
		for parted.HasMore() {
			v, _ := parted.Produce()
			gotValues = append(gotValues, v.String())
		}
		assert.Equal(t, wantValues, gotValues, "split at byte %d", split)
	}
}

func TestReader_IntegerAndSymbolTokens(t *testing.T) {
	r := NewReader()
	_, err := r.Consume([]byte("42 -7 hello"))
	require.NoError(t, err)
	require.NoError(t, r.Eof())

	v1, _ := r.Produce()
	assert.Equal(t, Int(42), v1)
	v2, _ := r.Produce()
	assert.Equal(t, Int(-7), v2)
	v3, _ := r.Produce()
	sym, ok := v3.(Symbol)
	require.True(t, ok)
	assert.Equal(t, "hello", sym.Name())
}

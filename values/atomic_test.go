package values

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicStringRoundTrip(t *testing.T) {
	assert.Equal(t, "42", NewInteger(42).String())
	assert.Equal(t, "true", NewBoolean(true).String())
	assert.Equal(t, "false", NewBoolean(false).String())
	assert.Equal(t, "hello", NewString("hello").String())

	dec := NewDecimal(big.NewRat(5, 2))
	assert.Equal(t, "2.5", dec.String())
}

func TestAtomicDoubleFormatting(t *testing.T) {
	assert.Equal(t, "NaN", NewDouble(nan()).String())
	assert.Equal(t, "1", NewDouble(1.0).String())
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestAtomicAsFloat64(t *testing.T) {
	f, ok := NewInteger(7).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = NewString("x").AsFloat64()
	assert.False(t, ok)
}

func TestEffectiveBooleanValue(t *testing.T) {
	b, ok := Sequence{}.EffectiveBooleanValue()
	assert.True(t, ok)
	assert.False(t, b)

	b, ok = Sequence{AtomicItem{Value: NewString("")}}.EffectiveBooleanValue()
	assert.True(t, ok)
	assert.False(t, b)

	b, ok = Sequence{AtomicItem{Value: NewString("x")}}.EffectiveBooleanValue()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = Sequence{AtomicItem{Value: NewInteger(1)}, AtomicItem{Value: NewInteger(2)}}.EffectiveBooleanValue()
	assert.False(t, ok)
}

func TestSequenceTypeCheckers(t *testing.T) {
	chk := ExactlyOneAtomic(TInteger, false)
	ok, _ := chk(Sequence{AtomicItem{Value: NewInteger(1)}})
	assert.True(t, ok)

	ok, reason := chk(Sequence{AtomicItem{Value: NewString("x")}})
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

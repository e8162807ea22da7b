package hashtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ustr"
)

func TestSetThenGetRoundtripsIntKeys(t *testing.T) {
	ht := MkHash(8)
	v, inserted := ht.Set(1, "one")
	require.True(t, inserted)
	require.Equal(t, "one", v)

	got, ok := ht.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", got)
}

func TestSetRejectsDuplicateKey(t *testing.T) {
	ht := MkHash(8)
	ht.Set(1, "one")
	v, inserted := ht.Set(1, "uno")
	require.False(t, inserted)
	require.Equal(t, "one", v)
}

func TestGetMissingKeyReturnsFalse(t *testing.T) {
	ht := MkHash(8)
	_, ok := ht.Get(42)
	require.False(t, ok)
}

func TestDelRemovesKey(t *testing.T) {
	ht := MkHash(8)
	ht.Set(1, "one")
	ht.Del(1)
	_, ok := ht.Get(1)
	require.False(t, ok)
}

func TestDelOfMissingKeyPanics(t *testing.T) {
	ht := MkHash(8)
	require.Panics(t, func() { ht.Del(1) })
}

func TestSizeCountsAllInsertedElements(t *testing.T) {
	ht := MkHash(4)
	for i := 0; i < 10; i++ {
		ht.Set(i, i*i)
	}
	require.Equal(t, 10, ht.Size())
}

func TestUstrKeysRoundtrip(t *testing.T) {
	ht := MkHash(8)
	ht.Set(ustr.FromStr("init"), 1)
	v, ok := ht.Get(ustr.FromStr("init"))
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestIterVisitsEveryElementUnlessStoppedEarly(t *testing.T) {
	ht := MkHash(4)
	for i := 0; i < 5; i++ {
		ht.Set(i, i)
	}
	seen := 0
	ht.Iter(func(k, v interface{}) bool {
		seen++
		return false
	})
	require.Equal(t, 5, seen)
}

func TestElemsReturnsAllPairs(t *testing.T) {
	ht := MkHash(4)
	ht.Set(1, "a")
	ht.Set(2, "b")
	require.Len(t, ht.Elems(), 2)
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet_NestedHit(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "value"},
		},
	}
	v, ok := Get(doc, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestGet_MissingIntermediate(t *testing.T) {
	doc := map[string]any{"a": map[string]any{}}
	_, ok := Get(doc, "a.b.c")
	assert.False(t, ok)
}

func TestGet_NonObjectIntermediate(t *testing.T) {
	doc := map[string]any{"a": "leaf"}
	_, ok := Get(doc, "a.b")
	assert.False(t, ok)
}

func TestGetInt_Float64(t *testing.T) {
	// JSON numbers decode as float64.
	doc := map[string]any{"n": float64(350)}
	n := getInt(doc, "n")
	assert.NotNil(t, n)
	assert.Equal(t, 350, *n)
}

func TestGetInt_WrongType(t *testing.T) {
	doc := map[string]any{"n": "350"}
	assert.Nil(t, getInt(doc, "n"))
}

func TestGetStringList_SkipsNonStrings(t *testing.T) {
	doc := map[string]any{"l": []any{"a", float64(1), "b"}}
	assert.Equal(t, []string{"a", "b"}, getStringList(doc, "l"))
}

func TestDedup_PreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"x", "y", "z"}, dedup([]string{"x", "y", "x", "z", "y"}))
}

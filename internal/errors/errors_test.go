package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCarriesMetadata(t *testing.T) {
	base := NewStd("boom")
	err := New(base).
		Component("datastore").
		Category(CategoryDatabase).
		Context("operation", "save scan").
		Build()

	var enhanced *EnhancedError
	require.True(t, As(err, &enhanced))
	assert.Equal(t, "datastore", enhanced.Component)
	assert.Equal(t, CategoryDatabase, enhanced.Category)
	assert.Equal(t, "save scan", enhanced.GetContext()["operation"])
	assert.Equal(t, "boom", err.Error())
	assert.True(t, Is(err, base), "wrapping must preserve errors.Is matching")
}

func TestBuilderDefaults(t *testing.T) {
	err := Newf("bad value %d", 42).Build()

	var enhanced *EnhancedError
	require.True(t, As(err, &enhanced))
	assert.Equal(t, ComponentUnknown, enhanced.Component)
	assert.Equal(t, CategoryGeneric, enhanced.Category)
	assert.Equal(t, "bad value 42", err.Error())
}

func TestEnhancedErrorsMatchOnCategory(t *testing.T) {
	a := New(fmt.Errorf("a")).Category(CategoryValidation).Build()
	b := New(fmt.Errorf("b")).Category(CategoryValidation).Build()
	c := New(fmt.Errorf("c")).Category(CategoryDatabase).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestGetContextReturnsCopy(t *testing.T) {
	err := Newf("x").Context("k", "v").Build()

	var enhanced *EnhancedError
	require.True(t, As(err, &enhanced))
	ctx := enhanced.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", enhanced.GetContext()["k"])
}

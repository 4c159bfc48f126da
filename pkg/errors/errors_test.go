package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsUnwrapsThroughChain(t *testing.T) {
	base := New(CodeNotFound, "product not found")
	wrapped := fmt.Errorf("while checking out: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	assert.Nil(t, As(fmt.Errorf("plain")))
	assert.Nil(t, As(nil))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestInvalidTransitionMapsToUnprocessable(t *testing.T) {
	meta := MetadataFor(CodeInvalidTransition)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
	assert.True(t, meta.DetailsAllowed)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(CodeDependency, cause, "load cart")

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "load cart")
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("inner"), "outer")
	dump := Dump(err)

	assert.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
}

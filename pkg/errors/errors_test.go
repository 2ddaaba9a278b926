package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTaxonomyEmptyPath, "category path empty after normalization")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeTaxonomyEmptyPath, err.Code)
	assert.Contains(t, err.Error(), "TAX_001")
	assert.Contains(t, err.Error(), "category path empty after normalization")
	assert.NotEmpty(t, err.Stack)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeNodeNotFound, "node missing")
	wrapped := Wrap(inner, ErrCodeUnknown, "while persisting")
	assert.Equal(t, ErrCodeNodeNotFound, wrapped.Code)
	assert.Equal(t, inner, wrapped.Unwrap())
}

func TestWrap_ChainInspection(t *testing.T) {
	base := fmt.Errorf("connection refused")
	wrapped := Wrap(base, ErrCodeDatabaseError, "failed to write nodes")

	assert.True(t, IsCode(wrapped, ErrCodeDatabaseError))
	assert.False(t, IsCode(wrapped, ErrCodeCacheError))
	assert.Equal(t, ErrCodeDatabaseError, GetCode(wrapped))
}

func TestWithDetail(t *testing.T) {
	err := NotFound("node not found").WithDetail("id=electronics-phones")
	assert.Contains(t, err.Error(), "id=electronics-phones")

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("ignored"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("gone")))
	assert.True(t, IsNotFound(New(ErrCodeNodeNotFound, "gone")))
	assert.False(t, IsNotFound(Internal("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusForCode(ErrCodeNodeNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusForCode(ErrCodeTaxonomyDanglingParent))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("MISSING")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "TAX", ModuleForCode(ErrCodeTaxonomyDanglingParent))
	assert.Equal(t, "MET", ModuleForCode(ErrCodeMetricsUnresolvedURL))
	assert.Equal(t, "SCR", ModuleForCode(ErrCodeScoringFailed))
}

func TestClientServerClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.False(t, IsServerError(ErrCodeBadRequest))
	assert.True(t, IsServerError(ErrCodeMetricsRollupFailed))
}

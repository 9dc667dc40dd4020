// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrySemanticsPerCode(t *testing.T) {
	// Infrastructure failures retry, caller input and catalog problems do not.
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeClaimsQueryFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeCacheUnavailable))
	assert.Equal(t, 2, GetRetryCount(ErrCodeQueryTimeout))

	for _, code := range []ErrorCode{
		ErrCodeEmptyCatalog, ErrCodeCatalogInvalid, ErrCodePolicyNotFound,
		ErrCodeInvalidProfile, ErrCodeInvalidTripContext, ErrCodeMissingVariable, ErrCodeParseFailed,
	} {
		assert.Equal(t, 0, GetRetryCount(code), string(code))
		assert.False(t, IsRetryableErrorCode(code), string(code))
	}
}

func TestConstructorsSetRetryable(t *testing.T) {
	assert.False(t, NewEmptyCatalogError("catalog.json").Retryable)
	assert.False(t, NewInvalidProfileError("age -1").Retryable)
	assert.True(t, NewClaimsQueryFailedError("japan", fmt.Errorf("boom")).Retryable)
	assert.True(t, NewDatabaseConnectionFailedError(fmt.Errorf("refused")).Retryable)

	nf := NewPolicyNotFoundError("ghost")
	assert.False(t, nf.Retryable)
	assert.Equal(t, "ghost", nf.Metadata["productId"])
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewClaimsQueryFailedError("japan", fmt.Errorf("boom")))
	assert.Equal(t, "CLAIMS_QUERY_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "CLAIMS_QUERY_FAILED", vars["errorCode"])
	assert.Equal(t, "CLAIMS_QUERY_FAILED", vars["originalErrorCode"])

	// Non-retryable errors never carry retries, even for mapped codes.
	fatal := ConvertToBPMNError(NewEmptyCatalogError("catalog.json"))
	assert.Equal(t, "EMPTY_CATALOG", fatal.Code)
	assert.Equal(t, 0, fatal.Retries)

	// Unknown codes pass through verbatim.
	unknown := ConvertToBPMNError(&StandardError{Code: "SOMETHING_ELSE", Message: "m"})
	assert.Equal(t, "SOMETHING_ELSE", unknown.Code)
}

func TestErrorHandlerNormalization(t *testing.T) {
	handler := NewErrorHandler(noopLogger{})

	// A StandardError passes through untouched so its retry semantics
	// survive into the fail/throw decision.
	std := NewClaimsQueryFailedError("japan", fmt.Errorf("boom"))
	assert.Same(t, std, handler.normalizeError(std))

	// Anything else becomes a non-retryable internal error.
	wrapped := handler.normalizeError(fmt.Errorf("surprise"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), wrapped.Code)
	assert.False(t, wrapped.Retryable)
	assert.Equal(t, "surprise", wrapped.Details)
}

type noopLogger struct{}

func (noopLogger) Error(string, map[string]interface{}) {}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeEmptyCatalog))
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodePolicyNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeClaimsQueryFailed))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidProfile))
	assert.Equal(t, "OTHER", GetErrorCategory("WEIRD_CODE"))
}

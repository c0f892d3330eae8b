package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"retryable technical error", NewQueryExecutionFailedError("save_state", fmt.Errorf("conn reset")), 3},
		{"timeout", NewSearchTimeoutError("search_leads"), 2},
		{"business error", NewConversationNotFoundError("conv_1"), 0},
		{"non retryable overrides code", &StandardError{Code: ErrCodeQueryExecutionFailed, Retryable: false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, bpmn.Code, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("apply message: %w", NewStateSaveFailedError("conv_1", nil))
	assert.Equal(t, ErrCodeStateSaveFailed, Normalize(wrapped).Code)

	assert.Equal(t, ErrorCode("TIMEOUT_ERROR"), Normalize(fmt.Errorf("x: %w", context.DeadlineExceeded)).Code)
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), Normalize(fmt.Errorf("boom")).Code)
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewSessionNotFoundError("live_abc"))
	assert.True(t, IsCode(err, ErrCodeSessionNotFound))
	assert.False(t, IsCode(err, ErrCodeConversationNotFound))
	assert.False(t, IsCode(nil, ErrCodeSessionNotFound))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeConversationNotFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeStateNotBuilt))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidPayload))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(ErrCodeRateLimited))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeStateSaveFailed))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONVERSATION", GetErrorCategory(ErrCodeStateSaveFailed))
	assert.Equal(t, "LIVE", GetErrorCategory(ErrCodeQuotationNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
	assert.Equal(t, "INTEGRATION", GetErrorCategory(ErrCodeCRMSyncFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidPayload))
}

func TestStandardError_Metadata(t *testing.T) {
	err := NewConversationNotFoundError("conv_42")
	require.NotNil(t, err.Metadata)
	assert.Equal(t, "conv_42", err.Metadata["conversationId"])
	assert.Equal(t, "StandardError[CONVERSATION_NOT_FOUND]: Conversation not found", err.Error())
	assert.False(t, IsRetryableErrorCode(err.Code))
}

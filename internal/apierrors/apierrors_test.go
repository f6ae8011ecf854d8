package apierrors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name       string
		opts       []APIErrorOption
		wantStatus int
		wantDetail string
	}{
		{
			name:       "should default to internal server error",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "should carry the given status and detail",
			opts:       []APIErrorOption{WithDetail("time slot already taken"), WithHTTPStatusCode(http.StatusConflict)},
			wantStatus: http.StatusConflict,
			wantDetail: "time slot already taken",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewAPIError(tt.opts...)
			assert.Equal(t, tt.wantStatus, err.HTTPStatusCode())
			assert.Equal(t, tt.wantDetail, err.Detail)
		})
	}
}

func TestAPIErrorJSON(t *testing.T) {
	err := NewAPIError(WithDetail("schedule not found"), WithHTTPStatusCode(http.StatusNotFound))
	body, _ := json.Marshal(err)
	assert.JSONEq(t, `{"detail":"schedule not found"}`, string(body))
}

func TestHasStatus(t *testing.T) {
	notFound := NewAPIError(WithHTTPStatusCode(http.StatusNotFound))
	assert.True(t, HasStatus(notFound, http.StatusNotFound))
	assert.True(t, HasStatus(fmt.Errorf("wrapped: %w", notFound), http.StatusNotFound))
	assert.False(t, HasStatus(notFound, http.StatusConflict))
	assert.False(t, HasStatus(NewValidationError("date", "required"), http.StatusBadRequest))
}

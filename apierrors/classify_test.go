package apierrors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		category  Category
		retryable bool
	}{
		{401, KindUnauthorized, CategoryAuthRefresh, true},
		{403, KindInsufficientPermissions, CategoryNonRetryable, false},
		{404, KindNotFound, CategoryNonRetryable, false},
		{429, KindRateLimitExceeded, CategoryRetryable, true},
		{500, KindServiceUnavailable, CategoryRetryable, true},
		{502, KindServiceUnavailable, CategoryRetryable, true},
		{503, KindServiceUnavailable, CategoryRetryable, true},
		{504, KindTimeout, CategoryRetryable, true},
		{400, KindInvalidRequest, CategoryNonRetryable, false},
		{418, KindUnknown, CategoryNonRetryable, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			env := Classify(tt.status, nil)
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, tt.category, env.Category)
			assert.Equal(t, tt.retryable, env.Retryable)
			assert.Equal(t, tt.status, env.Status)
		})
	}
}

func TestClassify_RetryDelayFromBody(t *testing.T) {
	env := Classify(429, []byte(`{"retryDelay":{"seconds":5}}`))

	require.Equal(t, KindRateLimitExceeded, env.Kind)
	assert.Equal(t, 5*time.Second, env.RetryAfter)
}

func TestClassify_RetryDelayIgnoredForNonRetryable(t *testing.T) {
	env := Classify(400, []byte(`{"retryDelay":{"seconds":5}}`))

	assert.Equal(t, time.Duration(0), env.RetryAfter)
}

func TestClassify_MessageFromBody(t *testing.T) {
	env := Classify(404, []byte(`{"error":{"code":404,"message":"location not found","status":"NOT_FOUND"}}`))

	assert.Equal(t, "location not found", env.Message)
}

func TestClassify_MalformedBodyFallsBackToStatusText(t *testing.T) {
	env := Classify(503, []byte(`<html>upstream sad</html>`))

	assert.Equal(t, KindServiceUnavailable, env.Kind)
	assert.Equal(t, "Service Unavailable", env.Message)
}

func TestClassifyTransport_Timeout(t *testing.T) {
	env := ClassifyTransport(context.DeadlineExceeded)

	assert.Equal(t, KindTimeout, env.Kind)
	assert.True(t, env.Retryable)
}

func TestClassifyTransport_OtherErrors(t *testing.T) {
	env := ClassifyTransport(errors.New("connection refused"))

	assert.Equal(t, KindUnknown, env.Kind)
	assert.False(t, env.Retryable)
}

func TestClassifyTransport_PassesThroughEnvelope(t *testing.T) {
	orig := New(KindNotFound, 404, "gone")
	env := ClassifyTransport(fmt.Errorf("attempt failed: %w", orig))

	assert.Same(t, orig, env)
}

func TestFrom_WrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	env := From(cause)

	assert.Equal(t, KindUnknown, env.Kind)
	assert.ErrorIs(t, env, cause)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindRateLimitExceeded, 429, "slow down"))

	assert.True(t, IsKind(err, KindRateLimitExceeded))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestNonRetryable_Copy(t *testing.T) {
	orig := New(KindUnauthorized, 401, "expired")
	downgraded := orig.NonRetryable()

	assert.True(t, orig.Retryable, "original must stay untouched")
	assert.False(t, downgraded.Retryable)
	assert.Equal(t, CategoryNonRetryable, downgraded.Category)
}

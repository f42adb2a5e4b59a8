package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

func TestWithRequestIDGeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	id := GetRequestID(ctx)
	assert.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestWithUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-42")
	assert.Equal(t, "user-42", GetUserID(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}

func TestValuesDoNotCollide(t *testing.T) {
	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
}

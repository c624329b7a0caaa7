package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserContextRoundTrip(t *testing.T) {
	t.Parallel()

	user := testUser([]string{"admin"}, nil)
	ctx := ContextWithUser(context.Background(), user)

	got, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, user, got)
}

func TestUserFromContext_Absent(t *testing.T) {
	t.Parallel()

	got, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMustUserFromContext(t *testing.T) {
	t.Parallel()

	user := testUser(nil, nil)
	assert.Same(t, user, MustUserFromContext(ContextWithUser(context.Background(), user)))

	assert.Panics(t, func() {
		MustUserFromContext(context.Background())
	})
}

func TestTraceIDFromContext_NoActiveTrace(t *testing.T) {
	t.Parallel()

	id, ok := TraceIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindClassification(t *testing.T) {
	t.Parallel()

	err := New(NotFound, "consent not found")
	require.True(t, Is(err, NotFound))
	require.False(t, Is(err, Validation))

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, NotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	require.False(t, ok)
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Wrap(Upstream, "aa provider call", cause)
	require.True(t, Is(err, Upstream))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "upstream")
	require.Contains(t, err.Error(), "connection refused")

	require.NoError(t, Wrap(Upstream, "nothing", nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	t.Parallel()

	inner := New(Precondition, "consent is PENDING")
	outer := fmt.Errorf("create session: %w", inner)
	require.True(t, Is(outer, Precondition))
}

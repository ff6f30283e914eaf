package assets

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMinioSigner_SignURL(t *testing.T) {
	s, err := NewMinioSigner("storage.local:9000", "access", "secret", "task-assets",
		WithRegion("us-east-1"), WithExpiry(10*time.Minute))
	require.NoError(t, err)

	signed, err := s.SignURL(t.Context(), "icons/7.png")
	require.NoError(t, err)

	// Region is pinned, so the URL is computed without any network call.
	require.True(t, strings.HasPrefix(signed, "http://storage.local:9000/task-assets/icons/7.png?"),
		"unexpected URL shape: %s", signed)
	require.Contains(t, signed, "X-Amz-Signature=")
	require.Contains(t, signed, "X-Amz-Expires=600")
}

func TestMinioSigner_DefaultExpiry(t *testing.T) {
	s, err := NewMinioSigner("storage.local:9000", "access", "secret", "task-assets",
		WithRegion("us-east-1"))
	require.NoError(t, err)

	signed, err := s.SignURL(t.Context(), "icons/7.png")
	require.NoError(t, err)
	require.Contains(t, signed, "X-Amz-Expires=900")
}

func TestMinioSigner_RequiresBucket(t *testing.T) {
	_, err := NewMinioSigner("storage.local:9000", "access", "secret", "")
	require.Error(t, err)
}

func TestMinioSigner_EmptyKey(t *testing.T) {
	s, err := NewMinioSigner("storage.local:9000", "access", "secret", "task-assets",
		WithRegion("us-east-1"))
	require.NoError(t, err)

	_, err = s.SignURL(t.Context(), "")
	require.Error(t, err)
}

func TestSignerFunc(t *testing.T) {
	s := SignerFunc(func(ctx context.Context, key string) (string, error) {
		return "https://signed.example/" + key, nil
	})

	u, err := s.SignURL(t.Context(), "a/b.png")
	require.NoError(t, err)
	require.Equal(t, "https://signed.example/a/b.png", u)
}

package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/valora-identity/internal/config"
	"github.com/smallbiznis/valora-identity/internal/password"
)

// cheap params keep the suite fast
var testParams = config.PasswordParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestHashAndVerify(t *testing.T) {
	h := password.NewHasher(testParams)

	encoded, err := h.Hash("password123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.Verify("password123", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("wrong", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h := password.NewHasher(testParams)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := password.NewHasher(testParams)
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=999$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5",
	} {
		ok, err := h.Verify("password", encoded)
		require.Error(t, err, encoded)
		require.False(t, ok)
	}
}

func TestVerifyUsesEmbeddedCost(t *testing.T) {
	old := password.NewHasher(testParams)
	encoded, err := old.Hash("password123")
	require.NoError(t, err)

	current := password.NewHasher(config.PasswordParams{Time: 2, Memory: 8 * 1024, Threads: 1})
	ok, err := current.Verify("password123", encoded)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, current.NeedsRehash(encoded))
	require.False(t, old.NeedsRehash(encoded))
}

func TestNewHasherDefaults(t *testing.T) {
	h := password.NewHasher(config.PasswordParams{})
	encoded, err := h.Hash("x")
	require.NoError(t, err)
	require.Contains(t, encoded, "m=65536,t=3,p=2")
}

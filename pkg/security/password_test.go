package security_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk-backend/pkg/config"
	"github.com/freightdesk/freightdesk-backend/pkg/security"
)

func fastConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", fastConfig())
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := security.VerifyPassword("very-secure-password", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", fastConfig())
	require.Error(t, err)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=18$m=1,t=1,p=1$YQ$Yg", "$argon2id$v=19$m=x$YQ$Yg"} {
		_, err := security.VerifyPassword("pw", encoded)
		require.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)

	caller := domain.Identity{
		ID:               "user-1",
		Role:             domain.RoleBloodService,
		OrganizationKind: domain.OrganizationBloodBank,
	}

	signed, err := svc.Generate(caller)
	require.NoError(t, err)

	got, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, caller, got)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewService("test-signing-key", time.Hour)
	caller := domain.Identity{ID: "user-1", Role: domain.RoleDonor}

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		signed, err := NewService("another-key", time.Hour).Generate(caller)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		signed, err := NewService("test-signing-key", -time.Minute).Generate(caller)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "64b7f0c2a1b2c3d4e5f60001"

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier("")
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	v, err := NewTokenVerifier("s3cret")
	require.NoError(t, err)

	tok, err := v.Issue(userID, time.Hour)
	require.NoError(t, err)

	actor, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, actor.ID)
}

func TestVerifyRejects(t *testing.T) {
	v, err := NewTokenVerifier("s3cret")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		tok, err := v.Issue(userID, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenVerifier("other")
		tok, err := other.Issue(userID, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non id subject", func(t *testing.T) {
		tok, err := v.Issue("alice", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: userID}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

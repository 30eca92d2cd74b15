package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestOwnerFromContext(t *testing.T) {
	_, err := OwnerFromContext(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = OwnerFromContext(WithOwner(context.Background(), ""))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	owner, err := OwnerFromContext(WithOwner(context.Background(), "u1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "", "", 0)
	assert.Error(t, err)
}

func TestJWTVerifier_Verify(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, "https://auth.example.test", "authenticated", 0)
	require.NoError(t, err)

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name      string
		token     func() string
		wantOwner string
		wantErr   error
	}{
		{
			name: "valid token",
			token: func() string {
				return signToken(t, testSecret, jwt.RegisteredClaims{
					Subject: "user-1", Issuer: "https://auth.example.test",
					Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: future,
				})
			},
			wantOwner: "user-1",
		},
		{
			name:    "empty token",
			token:   func() string { return "" },
			wantErr: ErrUnauthenticated,
		},
		{
			name: "expired",
			token: func() string {
				return signToken(t, testSecret, jwt.RegisteredClaims{
					Subject: "user-1", Issuer: "https://auth.example.test",
					Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: past,
				})
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing expiry",
			token: func() string {
				return signToken(t, testSecret, jwt.RegisteredClaims{
					Subject: "user-1", Issuer: "https://auth.example.test",
					Audience: jwt.ClaimStrings{"authenticated"},
				})
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func() string {
				return signToken(t, "another-secret", jwt.RegisteredClaims{
					Subject: "user-1", Issuer: "https://auth.example.test",
					Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: future,
				})
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong audience",
			token: func() string {
				return signToken(t, testSecret, jwt.RegisteredClaims{
					Subject: "user-1", Issuer: "https://auth.example.test",
					Audience: jwt.ClaimStrings{"anon"}, ExpiresAt: future,
				})
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing subject",
			token: func() string {
				return signToken(t, testSecret, jwt.RegisteredClaims{
					Issuer: "https://auth.example.test", Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: future,
				})
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   func() string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, err := v.Verify(context.Background(), tt.token())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, owner)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
		})
	}
}

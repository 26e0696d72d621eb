package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-0123456789")

func TestTokenManager_IssueVerifyRoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, expiresAt, err := tm.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	userID, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenManager_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, NewTokenManager(testSecret, 0).TTL())
}

func TestTokenManager_UniqueTokens(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	first, _, err := tm.Issue(1)
	require.NoError(t, err)
	second, _, err := tm.Issue(1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenManager_TamperedToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, _, err := tm.Issue(7)
	require.NoError(t, err)

	// Flip one character in each segment
	segments := strings.Split(token, ".")
	require.Len(t, segments, 3)
	for i := range segments {
		mutated := make([]string, 3)
		copy(mutated, segments)
		mutated[i] = flipChar(mutated[i])

		_, err := tm.Verify(strings.Join(mutated, "."))
		assert.ErrorIs(t, err, ErrInvalidToken, "segment %d", i)
	}
}

func flipChar(s string) string {
	b := []byte(s)
	mid := len(b) / 2
	if b[mid] == 'A' {
		b[mid] = 'B'
	} else {
		b[mid] = 'A'
	}
	return string(b)
}

func TestTokenManager_Expired(t *testing.T) {
	clock := newFixedClock()
	tm := NewTokenManager(testSecret, time.Hour)
	tm.now = clock.Now

	token, _, err := tm.Issue(3)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = tm.Verify(token)
	assert.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenManager([]byte("another-secret-0123456"), time.Hour)
		token, _, err := other.Issue(1)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing exp", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"})
		signed, err := token.SignedString(testSecret)
		require.NoError(t, err)

		_, err = tm.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non numeric subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(testSecret)
		require.NoError(t, err)

		_, err = tm.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_ExpiryUnverified(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, expiresAt, err := tm.Issue(9)
	require.NoError(t, err)

	got, ok := tm.ExpiryUnverified(token)
	require.True(t, ok)
	assert.Equal(t, expiresAt.Unix(), got.Unix())

	// Signature is not checked
	other := NewTokenManager([]byte("another-secret-0123456"), 2*time.Hour)
	foreign, foreignExp, err := other.Issue(9)
	require.NoError(t, err)
	got, ok = tm.ExpiryUnverified(foreign)
	require.True(t, ok)
	assert.Equal(t, foreignExp.Unix(), got.Unix())

	_, ok = tm.ExpiryUnverified("garbage")
	assert.False(t, ok)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: ErrMissingToken},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrMalformedToken},
		{name: "lowercase scheme", header: "bearer abc", wantErr: ErrMalformedToken},
		{name: "scheme only", header: "Bearer", wantErr: ErrMalformedToken},
		{name: "empty token", header: "Bearer ", wantErr: ErrMalformedToken},
		{name: "extra parts", header: "Bearer abc def", wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrRevokedToken))
	assert.True(t, IsAuthError(ErrInvalidToken))
	assert.False(t, IsAuthError(assert.AnError))
	assert.False(t, IsAuthError(nil))
}

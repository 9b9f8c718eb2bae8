package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func TestProvider(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JSONWebKey{
			{Kid: "rsa-1", Kty: "RSA", Alg: "RS256", N: b64(rsaKey.N.Bytes()), E: b64(big.NewInt(int64(rsaKey.E)).Bytes())},
			{Kid: "ec-1", Kty: "EC", Alg: "ES256", Crv: "P-256", X: b64(ecKey.X.Bytes()), Y: b64(ecKey.Y.Bytes())},
		}})
	}))
	defer srv.Close()

	p := NewProviderWithClient(srv.URL, srv.Client())
	claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}

	t.Run("Should verify an RS256 token", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "rsa-1"
		signed, err := tok.SignedString(rsaKey)
		require.NoError(t, err)

		parsed, err := jwt.Parse(signed, p.KeyFunc)
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
	})

	t.Run("Should verify an ES256 token from the cached set", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
		tok.Header["kid"] = "ec-1"
		signed, err := tok.SignedString(ecKey)
		require.NoError(t, err)

		parsed, err := jwt.Parse(signed, p.KeyFunc)
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
		assert.EqualValues(t, 1, fetches.Load())
	})

	t.Run("Should reject an unknown kid", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "rotated-away"
		signed, _ := tok.SignedString(rsaKey)

		_, err := jwt.Parse(signed, p.KeyFunc)
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Should refuse a key of the wrong type", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
		tok.Header["kid"] = "rsa-1"
		signed, _ := tok.SignedString(ecKey)

		_, err := jwt.Parse(signed, p.KeyFunc)
		assert.Error(t, err)
	})
}

package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

const testProject = "demo-project"

type signer struct {
	kid  string
	priv *rsa.PrivateKey
}

func newSigner(t *testing.T, kid string) signer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return signer{kid: kid, priv: priv}
}

func (s signer) publicJWK(t *testing.T) jwk.Key {
	t.Helper()
	key, err := jwk.FromRaw(&s.priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, s.kid))
	return key
}

func keySet(t *testing.T, signers ...signer) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, s := range signers {
		require.NoError(t, set.AddKey(s.publicJWK(t)))
	}
	return set
}

func (s signer) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.kid != "" {
		tok.Header["kid"] = s.kid
	}
	out, err := tok.SignedString(s.priv)
	require.NoError(t, err)
	return out
}

func validClaims(now time.Time, sub string) *firebaseClaims {
	return &firebaseClaims{
		Email:         sub + "@example.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    firebaseIssuerPrefix + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// jwksServer serves the current key set and counts fetches.
type jwksServer struct {
	*httptest.Server
	set  atomic.Pointer[jwk.Set]
	hits atomic.Int32
	fail atomic.Bool
}

func newJWKSServer(t *testing.T, set jwk.Set) *jwksServer {
	t.Helper()
	srv := &jwksServer{}
	srv.set.Store(&set)
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.hits.Add(1)
		if srv.fail.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(*srv.set.Load())
	}))
	t.Cleanup(srv.Close)
	return srv
}

package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/config"
)

const testProject = "demo-chat"

type certServer struct {
	*httptest.Server
	fetches atomic.Int32
}

func newCertServer(t *testing.T, keys map[string]*rsa.PrivateKey) *certServer {
	t.Helper()
	pems := make(map[string]string, len(keys))
	for kid, key := range keys {
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)
		pems[kid] = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	}

	cs := &certServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.fetches.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pems)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func signFirebase(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   firebaseIssuerPrefix + testProject,
		"aud":   testProject,
		"sub":   "firebase-uid-1",
		"email": "alice@example.com",
		"name":  "Alice",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestFirebaseVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	certs := newCertServer(t, map[string]*rsa.PrivateKey{"k1": key})
	now := time.Now()
	verifier := NewFirebaseVerifier(testProject, certs.URL, time.Second)
	verifier.now = func() time.Time { return now }

	subject, err := verifier.Verify(context.Background(), signFirebase(t, key, "k1", baseClaims(now)))
	require.NoError(t, err)
	assert.Equal(t, Subject{
		ID:       "firebase-uid-1",
		Name:     "Alice",
		Email:    "alice@example.com",
		Provider: config.AuthProviderFirebase,
	}, subject)

	_, err = verifier.Verify(context.Background(), signFirebase(t, key, "k1", baseClaims(now)))
	require.NoError(t, err)
	assert.Equal(t, int32(1), certs.fetches.Load())

	mutate := func(field string, value interface{}) jwt.MapClaims {
		c := baseClaims(now)
		if value == nil {
			delete(c, field)
		} else {
			c[field] = value
		}
		return c
	}
	rejected := map[string]string{
		"wrong audience": signFirebase(t, key, "k1", mutate("aud", "another-project")),
		"wrong issuer":   signFirebase(t, key, "k1", mutate("iss", "https://evil.example.com")),
		"expired":        signFirebase(t, key, "k1", mutate("exp", now.Add(-time.Minute).Unix())),
		"no subject":     signFirebase(t, key, "k1", mutate("sub", nil)),
		"wrong key":      signFirebase(t, other, "k1", baseClaims(now)),
		"unknown kid":    signFirebase(t, key, "k9", baseClaims(now)),
		"not a jwt":      "abc",
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestFirebaseVerifierRejectsHMAC(t *testing.T) {
	certs := newCertServer(t, map[string]*rsa.PrivateKey{})
	verifier := NewFirebaseVerifier(testProject, certs.URL, time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(time.Now()))
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte("shared"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, int32(0), certs.fetches.Load())
}

func TestFirebaseVerifierRefreshesExpiredCache(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	certs := newCertServer(t, map[string]*rsa.PrivateKey{"k1": key})

	now := time.Now()
	verifier := NewFirebaseVerifier(testProject, certs.URL, time.Second)
	verifier.now = func() time.Time { return now }

	_, err = verifier.Verify(context.Background(), signFirebase(t, key, "k1", baseClaims(now)))
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	_, err = verifier.Verify(context.Background(), signFirebase(t, key, "k1", baseClaims(now)))
	require.NoError(t, err)
	assert.Equal(t, int32(2), certs.fetches.Load())
}

func TestFirebaseVerifierThrottlesUnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	certs := newCertServer(t, map[string]*rsa.PrivateKey{"k1": key})

	now := time.Now()
	verifier := NewFirebaseVerifier(testProject, certs.URL, time.Second)
	verifier.now = func() time.Time { return now }

	_, err = verifier.Verify(context.Background(), signFirebase(t, key, "k1", baseClaims(now)))
	require.NoError(t, err)

	bogus := signFirebase(t, key, "bogus", baseClaims(now))
	for i := 0; i < 50; i++ {
		_, err := verifier.Verify(context.Background(), bogus)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	assert.Equal(t, int32(1), certs.fetches.Load())

	// Still within max-age, but past the forced refresh window.
	now = now.Add(2 * time.Minute)
	for i := 0; i < 50; i++ {
		_, err := verifier.Verify(context.Background(), bogus)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	assert.Equal(t, int32(2), certs.fetches.Load())
}

func TestFirebaseVerifierSharesConcurrentFetch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	certs := newCertServer(t, map[string]*rsa.PrivateKey{"k1": key})

	now := time.Now()
	verifier := NewFirebaseVerifier(testProject, certs.URL, time.Second)
	verifier.now = func() time.Time { return now }
	token := signFirebase(t, key, "k1", baseClaims(now))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := verifier.Verify(context.Background(), token)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), certs.fetches.Load())
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 19302*time.Second, maxAge("public, max-age=19302, must-revalidate, no-transform"))
	assert.Equal(t, defaultCertsMaxAge, maxAge("no-cache"))
	assert.Equal(t, defaultCertsMaxAge, maxAge("max-age=abc"))
	assert.Equal(t, defaultCertsMaxAge, maxAge(""))
}

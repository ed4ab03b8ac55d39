package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"gopherai-chat/internal/config"
)

const (
	DefaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix    = "https://securetoken.google.com/"
	defaultCertsMaxAge      = time.Hour
	minForcedRefresh        = time.Minute
)

type firebaseClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens against Google's rotating
// signing certificates. Certificates are cached for the max-age the
// endpoint advertises.
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client
	now        func() time.Time

	fetches singleflight.Group

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	fetchedAt time.Time
}

func NewFirebaseVerifier(projectID, certsURL string, timeout time.Duration) *FirebaseVerifier {
	if certsURL == "" {
		certsURL = DefaultFirebaseCertsURL
	}
	return &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   certsURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Subject, error) {
	claims := &firebaseClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Subject{}, invalid(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Subject{}, invalid(errors.New("token has no subject"))
	}
	return Subject{
		ID:       claims.Subject,
		Name:     claims.Name,
		Email:    claims.Email,
		Provider: config.AuthProviderFirebase,
	}, nil
}

func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	key, ok := v.keys[kid]
	fresh := v.freshLocked()
	recent := v.recentLocked()
	v.mu.Unlock()

	if fresh {
		if ok {
			return key, nil
		}
		// Unknown kid on a fresh cache usually means the keys just rotated,
		// but forged kids must not turn every request into a fetch.
		if recent {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (v *FirebaseVerifier) freshLocked() bool {
	return v.keys != nil && v.now().Before(v.expiresAt)
}

func (v *FirebaseVerifier) recentLocked() bool {
	return !v.fetchedAt.IsZero() && v.now().Sub(v.fetchedAt) < minForcedRefresh
}

// refresh fetches the certificates outside the cache lock. Concurrent
// callers share one request.
func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	_, err, _ := v.fetches.Do("certs", func() (interface{}, error) {
		v.mu.Lock()
		skip := v.freshLocked() && v.recentLocked()
		v.mu.Unlock()
		if skip {
			return nil, nil
		}

		keys, ttl, err := v.fetchKeys(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		now := v.now()
		v.keys = keys
		v.expiresAt = now.Add(ttl)
		v.fetchedAt = now
		v.mu.Unlock()
		return nil, nil
	})
	return err
}

func (v *FirebaseVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build certs request failed: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch signing certs failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read signing certs failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("signing certs status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.Unmarshal(raw, &pems); err != nil {
		return nil, 0, fmt.Errorf("parse signing certs failed: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, 0, fmt.Errorf("parse signing cert %q failed: %w", kid, err)
		}
		keys[kid] = key
	}
	return keys, maxAge(resp.Header.Get("Cache-Control")), nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultCertsMaxAge
}

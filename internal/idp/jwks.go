package idp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier verifies RS256 tokens against the identity provider's
// published key set. Keys are cached per kid; the set is re-fetched when
// a token references an unknown kid or the refresh interval elapses.
//
// The verifier is constructed once at startup and injected wherever it
// is needed; there is no package-level instance.
type JWKSVerifier struct {
	jwksURL  string
	issuer   string
	audience string
	client   *http.Client
	refresh  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSVerifier creates a verifier for the given provider endpoints.
func NewJWKSVerifier(jwksURL, issuer, audience string, refresh time.Duration, logger *slog.Logger) *JWKSVerifier {
	return &JWKSVerifier{
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
		client:   &http.Client{Timeout: 10 * time.Second},
		refresh:  refresh,
		logger:   logger,
		keys:     map[string]*rsa.PublicKey{},
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, ErrTokenRequired
	}

	token, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrTokenInvalid
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, ErrTokenInvalid
		}
		return v.keyForKid(ctx, kid)
	}, verifyOptions(v.issuer, v.audience)...)
	if err != nil {
		// Transport failures during the key fetch are server-side
		// problems, not a statement about the token.
		var fetchErr *keyFetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, classifyJWTError(err)
	}

	return claimsFromToken(token)
}

// keyForKid returns the cached key for kid, refreshing the key set when
// the kid is unknown or the cache has gone stale.
func (v *JWKSVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	stale := time.Since(v.fetchedAt) > v.refresh
	if key, ok := v.keys[kid]; ok && !stale {
		return key, nil
	}

	if err := v.fetchLocked(ctx); err != nil {
		// Serve a cached key through provider outages.
		if key, ok := v.keys[kid]; ok {
			return key, nil
		}
		return nil, err
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, ErrTokenInvalid
	}
	return key, nil
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keyFetchError marks a JWKS transport/parse failure so the middleware
// can report it as a server error instead of rejecting the caller.
type keyFetchError struct {
	err error
}

func (e *keyFetchError) Error() string { return fmt.Sprintf("fetching provider keys: %v", e.err) }
func (e *keyFetchError) Unwrap() error { return e.err }

func (v *JWKSVerifier) fetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return &keyFetchError{err: err}
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("❌ [IdP] Failed to fetch JWKS", "error", err, "url", v.jwksURL)
		return &keyFetchError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("❌ [IdP] JWKS endpoint returned non-200", "status", resp.StatusCode, "url", v.jwksURL)
		return &keyFetchError{err: fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)}
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return &keyFetchError{err: err}
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := parseRSAKey(k)
		if err != nil {
			v.logger.Warn("⚠️ [IdP] Skipping unparsable JWKS key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = key
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	v.logger.Debug("🔑 [IdP] JWKS refreshed", "keys", len(keys))
	return nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("zero exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

package idp

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity handed to the rest of the system.
type Claims struct {
	Subject   string
	Email     string
	Name      string // optional
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier checks a raw bearer token against the identity provider and
// returns the decoded claim set.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// Verifier errors. The auth middleware switches on these instead of
// inspecting error text.
var (
	ErrTokenRequired    = errors.New("token is required")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrIncompleteClaims = errors.New("token claims are incomplete")
)

// HSVerifier verifies HS256 tokens against a shared secret. Used in
// development and tests where no identity provider is reachable.
type HSVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewHSVerifier creates a shared-secret verifier.
func NewHSVerifier(secret, issuer, audience string) *HSVerifier {
	return &HSVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

func (v *HSVerifier) Verify(_ context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, ErrTokenRequired
	}

	token, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return v.secret, nil
	}, verifyOptions(v.issuer, v.audience)...)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	return claimsFromToken(token)
}

func verifyOptions(issuer, audience string) []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithIssuedAt()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

func classifyJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

// claimsFromToken extracts and validates the claim set. Every required
// field must be present, correctly typed, and non-empty.
func claimsFromToken(token *jwt.Token) (*Claims, error) {
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	subject, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	name, _ := mapClaims["name"].(string)
	issuer, _ := mapClaims["iss"].(string)

	audience := ""
	switch aud := mapClaims["aud"].(type) {
	case string:
		audience = aud
	case []interface{}:
		if len(aud) > 0 {
			audience, _ = aud[0].(string)
		}
	}

	issuedAt := numericDate(mapClaims["iat"])
	expiresAt := numericDate(mapClaims["exp"])

	claims := &Claims{
		Subject:   subject,
		Email:     email,
		Name:      name,
		Issuer:    issuer,
		Audience:  audience,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if err := claims.validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

func numericDate(raw interface{}) time.Time {
	seconds, ok := raw.(float64)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(seconds), 0).UTC()
}

func (c *Claims) validate() error {
	if c.Subject == "" || c.Email == "" || c.Issuer == "" || c.Audience == "" {
		return ErrIncompleteClaims
	}
	if c.IssuedAt.IsZero() || c.ExpiresAt.IsZero() {
		return ErrIncompleteClaims
	}
	return nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated owner behind a bearer token.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Verifier checks a bearer token and returns the owner it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims are the Supabase access token claims we rely on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with the project's JWT secret.
type JWTVerifier struct {
	key      []byte
	audience string
}

// NewJWTVerifier returns a verifier for tokens signed with secret. An empty
// audience skips the aud check.
func NewJWTVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{key: []byte(secret), audience: audience}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// SupabaseVerifier asks the auth server who owns the token
// (GET /auth/v1/user).
type SupabaseVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseVerifier(baseURL, apiKey string, client *http.Client) *SupabaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseVerifier{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.apiKey)
	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Identity{}, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("auth provider: unexpected status %d", resp.StatusCode)
	}
	var u supabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return Identity{}, fmt.Errorf("auth provider: decode user: %w", err)
	}
	if u.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: u.ID, Email: u.Email}, nil
}

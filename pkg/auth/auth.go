// Package auth verifies the bearer tokens issued by the identity provider and
// turns them into viewers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	jwt "github.com/golang-jwt/jwt/v5"
)

type viewerCtxKey int

const viewerKey viewerCtxKey = 1

// Claims carried by viewer tokens. TZ is an IANA zone name.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	TZ    string `json:"tz,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret   []byte
	fallback *time.Location
}

// Init returns an authenticator for HS256 tokens signed with secret. Viewers
// whose token has no usable zone get fallback.
func Init(secret string, fallback *time.Location) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if fallback == nil {
		fallback = time.Local
	}
	return &Authenticator{secret: []byte(secret), fallback: fallback}, nil
}

func (a *Authenticator) Sign(uid, email, tz string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{UID: uid, Email: email, TZ: tz, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tok and returns the viewer it identifies.
func (a *Authenticator) Parse(tok string) (*entity.Viewer, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}

	uid := c.UID
	if uid == "" {
		uid = c.Subject
	}

	loc := a.fallback
	if c.TZ != "" {
		if l, err := time.LoadLocation(c.TZ); err == nil {
			loc = l
		}
	}

	return entity.NewViewer(uid, c.Email, loc)
}

// WithAuth attaches the viewer to the request context when a valid bearer
// token is present.
func (a *Authenticator) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if v, err := a.Parse(tok); err == nil {
				next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), v)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a viewer.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ViewerFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithViewer(ctx context.Context, v *entity.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

func ViewerFromContext(ctx context.Context) (*entity.Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(*entity.Viewer)
	return v, ok && v != nil
}

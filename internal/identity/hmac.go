package identity

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const hmacIssuer = "resume-builder-dev"

// HMACVerifier accepts HS256 tokens signed with a shared secret. It exists
// for local development where no provider project is configured.
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), now: time.Now}
}

// SignToken mints a token for id that expires after ttl.
func (v *HMACVerifier) SignToken(id Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := firebaseClaims{
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Name:          id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    hmacIssuer,
			Subject:   id.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(hmacIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, classify(err)
	}
	if claims.Subject == "" || len(claims.Subject) > MaxSubjectLength {
		return Identity{}, ErrMalformed
	}
	return Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

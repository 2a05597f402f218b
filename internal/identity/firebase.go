package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resume-builder/internal/shared/telemetry"
)

const (
	DefaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	firebaseIssuerPrefix   = "https://securetoken.google.com/"
)

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates RS256 ID tokens minted by Firebase Authentication.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	now       func() time.Time
	leeway    time.Duration
}

// FirebaseOption customizes a FirebaseVerifier.
type FirebaseOption func(*FirebaseVerifier)

// WithClock overrides the verifier's time source.
func WithClock(now func() time.Time) FirebaseOption {
	return func(v *FirebaseVerifier) { v.now = now }
}

// WithLeeway tolerates small clock skew on exp/iat checks.
func WithLeeway(d time.Duration) FirebaseOption {
	return func(v *FirebaseVerifier) { v.leeway = d }
}

func NewFirebaseVerifier(projectID string, keys KeySource, opts ...FirebaseOption) *FirebaseVerifier {
	v := &FirebaseVerifier{projectID: projectID, keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKeyID
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, classify(err)
	}
	if claims.Subject == "" || len(claims.Subject) > MaxSubjectLength {
		return Identity{}, fmt.Errorf("%w: subject must be 1-%d characters", ErrMalformed, MaxSubjectLength)
	}
	return Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

var errMissingKeyID = errors.New("token header has no kid")

// classify folds jwt parse errors into the package's rejection taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, errMissingKeyID):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		if !errors.Is(err, errUnknownKey) && errors.Is(err, jwt.ErrTokenUnverifiable) {
			telemetry.Warn("identity.key_lookup_failed", map[string]any{"err": err})
		}
		return fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}
}

package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	apiTokenPurpose = "bridge"
	apiTokenIssuer  = "isolog"
	DefaultTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrTokenMissing        = errors.New("missing api token")
	ErrTokenInvalid        = errors.New("invalid api token")
	ErrTokenExpired        = errors.New("expired api token")
	ErrTokenInvalidPurpose = errors.New("invalid api token purpose")
	ErrSecretMissing       = errors.New("signing secret is empty")
)

type APIClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// IssueAPIToken signs a bearer token for the host bridge.
func IssueAPIToken(secretKey []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	if len(secretKey) == 0 {
		return "", ErrSecretMissing
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now.IsZero() {
		now = time.Now()
	}
	if strings.TrimSpace(subject) == "" {
		subject = "host"
	}

	claims := APIClaims{
		Purpose: apiTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiTokenIssuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

func ParseAPIToken(secretKey []byte, rawToken string, now time.Time) (*APIClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrTokenMissing
	}
	if now.IsZero() {
		now = time.Now()
	}

	claims := &APIClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secretKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != apiTokenPurpose {
		return nil, ErrTokenInvalidPurpose
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

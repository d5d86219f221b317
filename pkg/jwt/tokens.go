package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "arena"

// ErrMissingPlayer indicates a token that does not name a player.
var ErrMissingPlayer = errors.New("jwt: token carries no player id")

// Claims identifies the player bound to an area session.
type Claims struct {
	PlayerID int64  `json:"pid"`
	UserID   string `json:"uid"`
	AreaID   string `json:"area"`
	Name     string `json:"name,omitempty"`
	Level    int    `json:"lvl,omitempty"`
	jwtlib.RegisteredClaims
}

// GenerateToken issues a signed session token with provided secret and ttl.
func GenerateToken(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		Issuer:    issuer,
		Subject:   claims.UserID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates and extracts claims from token.
func Parse(token string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if claims.PlayerID <= 0 {
		return nil, ErrMissingPlayer
	}
	return claims, nil
}

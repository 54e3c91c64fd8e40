package nakama

import (
	"fmt"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
)

// mintHostToken signs a short-lived token proving host ownership of a
// session. Clients attach it to host-only commands.
func mintHostToken(secret, sessionID, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("host token secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sid": sessionID,
		"uid": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// verifyHostToken validates a host token and returns the session and user it
// was minted for.
func verifyHostToken(secret, tokenString string) (sessionID, userID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to parse host token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid host token")
	}
	sessionID, _ = claims["sid"].(string)
	userID, _ = claims["uid"].(string)
	if sessionID == "" || userID == "" {
		return "", "", fmt.Errorf("host token missing claims")
	}
	return sessionID, userID, nil
}

package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// ProviderTokenValidity is fixed at issuance; credentials are never
// refreshed, a new one is minted per join attempt.
const ProviderTokenValidity = time.Hour

var (
	ErrCredentialSubjectMissing  = errors.New("credential subject user id is required")
	ErrCredentialSubjectMismatch = errors.New("cannot issue a credential for another user")
	ErrProviderNotConfigured     = errors.New("video provider credentials are not configured")
)

type ProviderClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueCredential mints a short-lived token authorizing subject to join the
// external video provider. The issuer claim carries the public api key so the
// provider can locate the signing secret on its side.
func IssueCredential(subject string) (string, error) {
	if len(subject) == 0 {
		return "", ErrCredentialSubjectMissing
	}

	apiKey := viper.GetString("calling.api_key")
	apiSecret := viper.GetString("calling.api_secret")
	if len(apiKey) == 0 || len(apiSecret) == 0 {
		return "", ErrProviderNotConfigured
	}

	now := time.Now()
	claims := ProviderClaims{
		UserID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ProviderTokenValidity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tks, err := token.SignedString([]byte(apiSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign provider credential: %v", err)
	}
	return tks, nil
}

func ParseCredential(tk string) (ProviderClaims, error) {
	var claims ProviderClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("calling.api_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid credential")
	}
	return claims, nil
}

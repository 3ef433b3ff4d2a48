package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lightpath/huddle/pkg/internal/models"
	"github.com/spf13/viper"
)

type AuthClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

func EncodeAuthToken(user models.Account) (string, error) {
	claims := AuthClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "huddle",
			Subject:   user.Uuid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tks, err := token.SignedString([]byte(viper.GetString("security.auth_token_secret")))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return tks, nil
}

func ParseAuthToken(tk string) (AuthClaims, error) {
	var claims AuthClaims
	token, err := jwt.ParseWithClaims(tk, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return []byte(viper.GetString("security.auth_token_secret")), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, fmt.Errorf("invalid token")
	}
	return claims, nil
}

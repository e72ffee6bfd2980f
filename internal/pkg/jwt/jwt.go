package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	TenantID string `json:"tenant_id"`
	StoreID  string `json:"store_id"`
	jwt.RegisteredClaims
}

type JSONWebToken struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewJSONWebToken(privateKeyPEM, publicKeyPEM []byte) *JSONWebToken {
	j := &JSONWebToken{}

	if len(privateKeyPEM) > 0 {
		if key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM); err == nil {
			j.privateKey = key
		}
	}

	if len(publicKeyPEM) > 0 {
		if key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err == nil {
			j.publicKey = key
		}
	}

	return j
}

func (j *JSONWebToken) Sign(claims DeviceClaims, ttl time.Duration) (string, error) {
	if j.privateKey == nil {
		return "", fmt.Errorf("signing key is not configured")
	}

	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	return token.SignedString(j.privateKey)
}

func (j *JSONWebToken) Parse(tokenString string) (*DeviceClaims, error) {
	if j.publicKey == nil {
		return nil, fmt.Errorf("verification key is not configured")
	}

	claims := &DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return j.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

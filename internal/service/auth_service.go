package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dealmint/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 商户令牌无效
var ErrInvalidToken = errors.New("invalid merchant token")

// MerchantClaims 商户 JWT 声明，商户标识存放在 sub
type MerchantClaims struct {
	jwt.RegisteredClaims
}

// MerchantID 返回商户标识
func (c *MerchantClaims) MerchantID() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Subject)
}

// MerchantAuthService 商户令牌服务
type MerchantAuthService struct {
	cfg config.JWTConfig
}

// NewMerchantAuthService 创建商户令牌服务
func NewMerchantAuthService(cfg config.JWTConfig) *MerchantAuthService {
	return &MerchantAuthService{cfg: cfg}
}

// GenerateJWT 为商户签发令牌
func (s *MerchantAuthService) GenerateJWT(merchantID string) (string, time.Time, error) {
	merchantID = strings.TrimSpace(merchantID)
	if merchantID == "" {
		return "", time.Time{}, errors.New("merchant id is required")
	}
	if s.cfg.SecretKey == "" {
		return "", time.Time{}, errors.New("merchant jwt secret is empty")
	}
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := MerchantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   merchantID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析商户令牌
func (s *MerchantAuthService) ParseJWT(tokenString string) (*MerchantClaims, error) {
	if s.cfg.SecretKey == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &MerchantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(*MerchantClaims); ok && token.Valid && claims.MerchantID() != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

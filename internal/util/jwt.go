package util

import (
	"errors"
	"lms_backend/internal/model"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string         `json:"user_id"`
	Nome   string         `json:"nome"`
	Setor  string         `json:"setor"`
	Role   model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity 会话身份
func (c *Claims) Identity() model.Identity {
	return model.Identity{
		ID:    c.UserID,
		Nome:  c.Nome,
		Setor: c.Setor,
		Role:  c.Role,
	}
}

func GenerateJWT(user *model.User, secret string, expiration time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiration)

	claims := &Claims{
		UserID: user.ID,
		Nome:   user.Nome,
		Setor:  user.Setor,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetIdentity 从上下文读取会话身份
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	claims := GetUserFromContext(c)
	if claims == nil || claims.UserID == "" {
		return model.Identity{}, false
	}
	return claims.Identity(), true
}

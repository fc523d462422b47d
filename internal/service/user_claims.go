package service

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserJWTClaims 买家 Token 载荷。Token 由账号服务签发，本服务只做验签。
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

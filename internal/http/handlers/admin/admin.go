package admin

import (
	"errors"
	"time"

	"github.com/youche-next/internal/http/response"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, response.CodeUnauthorized, "error.admin_login_invalid", nil)
		return
	case err != nil:
		respondError(c, response.CodeInternal, "error.login_failed", err)
		return
	}

	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改当前管理员的密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		response.Success(c, nil)
	case errors.Is(err, service.ErrInvalidPassword):
		respondError(c, response.CodeBadRequest, "error.password_old_invalid", nil)
	case errors.Is(err, service.ErrWeakPassword):
		if !respondAdminPasswordPolicyError(c, err) {
			respondError(c, response.CodeBadRequest, "error.password_weak", nil)
		}
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}

package models

import (
	"strings"

	"github.com/youche-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// InitDefaultAdmin 首次启动时创建默认管理员账号。
// 已有管理员时只校正内置 admin 账号的超管标记。
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count > 0 {
		return ensureBuiltinAdminSuper()
	}

	if username = strings.TrimSpace(username); username == "" {
		username = defaultAdminUsername
	}
	usingDefaultPassword := password == ""
	if usingDefaultPassword {
		password = defaultAdminPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(username, defaultAdminUsername),
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if usingDefaultPassword || password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "password", password)
		logger.Warnw("default_admin_password_change_required", "username", username)
		return nil
	}
	logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	return nil
}

func ensureBuiltinAdminSuper() error {
	err := DB.Model(&Admin{}).
		Where("username = ?", defaultAdminUsername).
		Update("is_super", true).Error
	if err != nil {
		logger.Warnw("ensure_default_admin_super_failed", "error", err)
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 后台管理员账号
//
// TokenVersion 与 TokenInvalidBefore 用于改密/禁用后让已签发的 JWT 立即失效。
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                         // 主键
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`         // 登录账号
	PasswordHash       string         `gorm:"not null" json:"-"`                            // bcrypt 哈希
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // Token 版本号
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                               // 早于该时刻签发的 Token 失效
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员绕过 casbin 校验
	LastLoginAt        *time.Time     `json:"last_login_at"`                                // 最后登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

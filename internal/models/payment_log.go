package models

import "time"

// PaymentLog 支付流水日志（仅追加，不更新不删除）
type PaymentLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`                  // 主键
	PaymentID    uint      `gorm:"index;not null" json:"payment_id"`      // 支付单ID
	Action       string    `gorm:"index;not null" json:"action"`          // 动作（create/callback/query/refund/close）
	Status       string    `gorm:"not null" json:"status"`                // 动作前状态
	NewStatus    string    `gorm:"not null" json:"new_status"`            // 动作后状态
	ClientIP     string    `gorm:"type:varchar(64)" json:"client_ip"`     // 来源IP
	RequestData  string    `gorm:"type:text" json:"request_data"`         // 脱敏后的请求数据
	ResponseData string    `gorm:"type:text" json:"response_data"`        // 脱敏后的响应数据
	OperatorID   *uint     `gorm:"index" json:"operator_id,omitempty"`    // 操作管理员ID（人工操作时）
	CreatedAt    time.Time `gorm:"index" json:"created_at"`               // 创建时间
}

// TableName 指定表名
func (PaymentLog) TableName() string {
	return "payment_logs"
}

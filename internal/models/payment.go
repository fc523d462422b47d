package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付单
//
// 金额一律为整数最小货币单位（人民币为分），业务层不出现浮点。
type Payment struct {
	ID             uint           `gorm:"primarykey" json:"id"`                           // 主键
	PaymentNo      string         `gorm:"uniqueIndex;size:32;not null" json:"payment_no"` // 支付单号
	OrderID        uint           `gorm:"index;not null" json:"order_id"`                 // 订单ID
	UserID         uint           `gorm:"index;not null" json:"user_id"`                  // 买家用户ID
	Channel        string         `gorm:"index;not null" json:"channel"`                  // 支付渠道（wallet_qr/web_redirect）
	ClientType     string         `gorm:"not null" json:"client_type"`                    // 终端类型（h5/pc/app）
	Amount         int64          `gorm:"not null" json:"amount"`                         // 应付金额（分）
	Currency       string         `gorm:"not null" json:"currency"`                       // 币种
	Status         string         `gorm:"index;not null" json:"status"`                   // 支付状态
	ChannelTradeNo string         `gorm:"index" json:"channel_trade_no"`                  // 第三方流水号
	PayURL         string         `gorm:"type:text" json:"pay_url"`                       // 跳转链接
	QRCode         string         `gorm:"type:text" json:"qr_code"`                       // 二维码内容
	ClientIP       string         `gorm:"type:varchar(64)" json:"client_ip"`              // 发起支付客户端IP
	ExpireTime     time.Time      `gorm:"index;not null" json:"expire_time"`              // 过期时间
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                           // 支付时间
	ClosedAt       *time.Time     `json:"closed_at"`                                      // 关闭时间
	RefundAmount   int64          `gorm:"not null;default:0" json:"refund_amount"`        // 累计退款金额（分）
	RefundReason   string         `gorm:"type:varchar(255)" json:"refund_reason"`         // 最近退款原因
	RefundedAt     *time.Time     `json:"refunded_at"`                                    // 全额退款完成时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                     // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// RefundableAmount 剩余可退金额
func (p *Payment) RefundableAmount() int64 {
	return p.Amount - p.RefundAmount
}

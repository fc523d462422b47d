package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 车辆订单（支付域协作方，仅建模支付关心的字段）
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                     // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`     // 订单编号
	BuyerID       uint           `gorm:"index;not null" json:"buyer_id"`           // 买家用户ID
	VehicleID     uint           `gorm:"index;not null" json:"vehicle_id"`         // 车源ID
	Status        string         `gorm:"index;not null" json:"status"`             // 订单状态
	DepositAmount int64          `gorm:"not null" json:"deposit_amount"`           // 定金金额（分）
	Currency      string         `gorm:"not null" json:"currency"`                 // 币种
	PayTime       *time.Time     `gorm:"index" json:"pay_time"`                    // 支付时间
	RefundTime    *time.Time     `json:"refund_time"`                              // 退款时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                               // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

package repository

import "time"

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	PaymentNo   string
	Channel     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentLogListFilter 查询支付日志的过滤条件
type PaymentLogListFilter struct {
	Page      int
	PageSize  int
	PaymentID uint
	Action    string
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

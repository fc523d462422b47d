package service

import "errors"

// 服务层业务错误。处理器按 errors.Is 映射为对外错误码。
var (
	ErrNotFound           = errors.New("资源不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")

	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderFetchFailed   = errors.New("订单查询失败")
	ErrOrderUpdateFailed  = errors.New("订单更新失败")
	ErrOrderStatusInvalid = errors.New("订单状态不允许当前操作")
	ErrOrderOwnerMismatch = errors.New("订单不属于当前用户")

	ErrPaymentNotFound             = errors.New("支付单不存在")
	ErrPaymentInvalid              = errors.New("支付参数无效")
	ErrPaymentCreateFailed         = errors.New("支付单创建失败")
	ErrPaymentUpdateFailed         = errors.New("支付单更新失败")
	ErrPaymentStateConflict        = errors.New("支付单状态不允许当前操作")
	ErrPaymentAmountMismatch       = errors.New("支付金额不一致")
	ErrPaymentSignatureInvalid     = errors.New("支付回调验签失败")
	ErrPaymentGatewayRequestFailed = errors.New("支付网关请求失败")
	ErrPaymentGatewayRejected      = errors.New("支付网关拒绝请求")
	ErrPaymentRefundAmountInvalid  = errors.New("退款金额无效")
)

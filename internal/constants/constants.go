package constants

// 支付状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusClosed   = "closed"
	PaymentStatusRefunded = "refunded"
)

// 支付渠道常量
const (
	PaymentChannelWalletQR    = "wallet_qr"
	PaymentChannelWebRedirect = "web_redirect"
)

// 支付终端类型常量
const (
	PaymentClientH5  = "h5"
	PaymentClientPC  = "pc"
	PaymentClientApp = "app"
)

// 支付日志动作常量
const (
	PaymentLogActionCreate   = "create"
	PaymentLogActionCallback = "callback"
	PaymentLogActionQuery    = "query"
	PaymentLogActionRefund   = "refund"
	PaymentLogActionClose    = "close"
)

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusRefunded       = "refunded"
	OrderStatusCanceled       = "canceled"
	OrderStatusCompleted      = "completed"
)

// 微信支付回调常量
const (
	WechatTradeStateSuccess    = "SUCCESS"
	WechatTradeStateNotPay     = "NOTPAY"
	WechatTradeStateClosed     = "CLOSED"
	WechatTradeStateRefund     = "REFUND"
	WechatTradeStatePayError   = "PAYERROR"
	WechatRefundStatusSuccess  = "SUCCESS"
	WechatCallbackEventTypePay = "TRANSACTION.SUCCESS"
)

// 支付宝回调常量
const (
	AlipayTradeStatusSuccess      = "TRADE_SUCCESS"
	AlipayTradeStatusFinished     = "TRADE_FINISHED"
	AlipayTradeStatusClosed       = "TRADE_CLOSED"
	AlipayTradeStatusWaitBuyerPay = "WAIT_BUYER_PAY"
	AlipayCallbackSuccess         = "success"
	AlipayCallbackFail            = "fail"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskPaymentExpireClose = "payment:expire_close"
	TaskPaymentAutoRequery = "payment:auto_requery"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "yc"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

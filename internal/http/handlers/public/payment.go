package public

import (
	"strconv"

	"github.com/youche-next/internal/http/response"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付单请求
type CreatePaymentRequest struct {
	OrderID    uint   `json:"order_id" binding:"required"`
	Channel    string `json:"channel" binding:"required"`
	ClientType string `json:"client_type" binding:"required"`
}

const callbackLogValueLimit = 4096

// CreatePayment 为订单创建订金支付单
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.PaymentService.CreatePayment(c.Request.Context(), service.CreatePaymentInput{
		OrderID:    req.OrderID,
		UserID:     uid,
		Channel:    req.Channel,
		ClientType: req.ClientType,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		respondWithMappedError(c, err, paymentCreateErrorRules, response.CodeInternal, "error.payment_create_failed")
		return
	}

	payment := result.Payment
	response.Success(c, gin.H{
		"payment_id":  payment.ID,
		"payment_no":  payment.PaymentNo,
		"order_id":    payment.OrderID,
		"channel":     payment.Channel,
		"client_type": payment.ClientType,
		"amount":      payment.Amount,
		"amount_yuan": models.MinorToYuanString(payment.Amount),
		"currency":    payment.Currency,
		"status":      payment.Status,
		"pay_url":     result.PayURL,
		"qr_code":     result.QRCode,
		"expire_time": payment.ExpireTime,
	})
}

// GetPaymentStatus 查询支付单当前状态
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	payment, ok := h.loadUserPayment(c, uid)
	if !ok {
		return
	}
	orderStatus, ok := h.loadOrderStatus(c, payment.OrderID)
	if !ok {
		return
	}
	response.Success(c, paymentStatusView(payment, orderStatus))
}

// QueryPayment 主动向渠道核对支付状态并同步本地支付单
func (h *Handler) QueryPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	payment, ok := h.loadUserPayment(c, uid)
	if !ok {
		return
	}

	refreshed, err := h.PaymentService.QueryRemoteAndSync(c.Request.Context(), payment.ID)
	if err != nil {
		respondWithMappedError(c, err, paymentQueryErrorRules, response.CodeInternal, "error.payment_query_failed")
		return
	}
	orderStatus, ok := h.loadOrderStatus(c, refreshed.OrderID)
	if !ok {
		return
	}
	response.Success(c, paymentStatusView(refreshed, orderStatus))
}

func (h *Handler) loadUserPayment(c *gin.Context, userID uint) (*models.Payment, bool) {
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "error.payment_invalid", nil)
		return nil, false
	}
	payment, err := h.PaymentService.GetPaymentForUser(uint(paymentID), userID)
	if err != nil {
		respondWithMappedError(c, err, paymentQueryErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return nil, false
	}
	return payment, true
}

func (h *Handler) loadOrderStatus(c *gin.Context, orderID uint) (string, bool) {
	orderStatus, err := h.PaymentService.GetOrderStatus(orderID)
	if err != nil {
		respondWithMappedError(c, err, paymentQueryErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return "", false
	}
	return orderStatus, true
}

func paymentStatusView(payment *models.Payment, orderStatus string) gin.H {
	return gin.H{
		"payment_id":       payment.ID,
		"payment_no":       payment.PaymentNo,
		"order_id":         payment.OrderID,
		"order_status":     orderStatus,
		"channel":          payment.Channel,
		"status":           payment.Status,
		"amount":           payment.Amount,
		"amount_yuan":      models.MinorToYuanString(payment.Amount),
		"currency":         payment.Currency,
		"channel_trade_no": payment.ChannelTradeNo,
		"paid_at":          payment.PaidAt,
		"expire_time":      payment.ExpireTime,
		"refund_amount":    payment.RefundAmount,
	}
}

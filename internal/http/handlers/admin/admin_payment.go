package admin

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/youche-next/internal/http/response"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/repository"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

const adminPaymentExportBatchSize = 500

// GetAdminPayments 获取支付单列表
func (h *Handler) GetAdminPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter, err := buildAdminPaymentFilter(c, page, pageSize)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payment_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, payments, pagination)
}

// ExportAdminPayments 导出支付单 CSV
func (h *Handler) ExportAdminPayments(c *gin.Context) {
	filter, err := buildAdminPaymentFilter(c, 1, adminPaymentExportBatchSize)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payments, _, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payment_fetch_failed", err)
		return
	}

	filename := fmt.Sprintf("payments_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write([]string{
		"id",
		"payment_no",
		"order_id",
		"user_id",
		"channel",
		"client_type",
		"status",
		"amount",
		"currency",
		"channel_trade_no",
		"refund_amount",
		"created_at",
		"paid_at",
		"expire_time",
	}); err != nil {
		requestLog(c).Errorw("admin_payment_export_header_write_failed", "error", err)
		return
	}
	for _, payment := range payments {
		paidAt := ""
		if payment.PaidAt != nil {
			paidAt = payment.PaidAt.Format(time.RFC3339)
		}
		if err := writer.Write([]string{
			strconv.FormatUint(uint64(payment.ID), 10),
			payment.PaymentNo,
			strconv.FormatUint(uint64(payment.OrderID), 10),
			strconv.FormatUint(uint64(payment.UserID), 10),
			payment.Channel,
			payment.ClientType,
			payment.Status,
			models.MinorToYuanString(payment.Amount),
			payment.Currency,
			payment.ChannelTradeNo,
			models.MinorToYuanString(payment.RefundAmount),
			payment.CreatedAt.Format(time.RFC3339),
			paidAt,
			payment.ExpireTime.Format(time.RFC3339),
		}); err != nil {
			requestLog(c).Errorw("admin_payment_export_row_write_failed", "payment_id", payment.ID, "error", err)
			return
		}
	}
	writer.Flush()
}

// GetAdminPayment 获取支付单详情
func (h *Handler) GetAdminPayment(c *gin.Context) {
	paymentID, ok := parseAdminPaymentID(c)
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return
	}
	response.Success(c, payment)
}

// GetAdminPaymentLogs 获取支付单操作日志
func (h *Handler) GetAdminPaymentLogs(c *gin.Context) {
	paymentID, ok := parseAdminPaymentID(c)
	if !ok {
		return
	}
	if _, err := h.PaymentService.GetPayment(paymentID); err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return
	}
	logs, err := h.PaymentService.ListPaymentLogs(paymentID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.payment_fetch_failed", err)
		return
	}
	response.Success(c, logs)
}

// QueryAdminPayment 主动向渠道核对支付状态
func (h *Handler) QueryAdminPayment(c *gin.Context) {
	paymentID, ok := parseAdminPaymentID(c)
	if !ok {
		return
	}
	payment, err := h.PaymentService.QueryRemoteAndSync(c.Request.Context(), paymentID)
	if err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_query_failed")
		return
	}
	response.Success(c, payment)
}

// RefundPaymentRequest 退款请求。amount 为分，0 表示退剩余全部。
type RefundPaymentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// RefundAdminPayment 发起退款
func (h *Handler) RefundAdminPayment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	paymentID, ok := parseAdminPaymentID(c)
	if !ok {
		return
	}

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.Amount < 0 {
		respondError(c, response.CodeBadRequest, "error.payment_refund_amount_invalid", nil)
		return
	}

	result, err := h.PaymentService.Refund(c.Request.Context(), service.RefundInput{
		PaymentID:  paymentID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		OperatorID: &adminID,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		respondWithMappedError(c, err, adminPaymentRefundErrorRules, response.CodeInternal, "error.payment_refund_failed")
		return
	}
	response.Success(c, gin.H{
		"payment_id":      result.Payment.ID,
		"payment_no":      result.Payment.PaymentNo,
		"status":          result.Payment.Status,
		"refund_no":       result.RefundNo,
		"refunded_amount": result.RefundedAmount,
		"refund_amount":   result.Payment.RefundAmount,
	})
}

// ClosePaymentRequest 关单请求
type ClosePaymentRequest struct {
	Reason string `json:"reason"`
}

// CloseAdminPayment 手工关闭待支付单
func (h *Handler) CloseAdminPayment(c *gin.Context) {
	paymentID, ok := parseAdminPaymentID(c)
	if !ok {
		return
	}
	var req ClosePaymentRequest
	_ = c.ShouldBindJSON(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "管理员手工关闭"
	}

	if _, err := h.PaymentService.GetPayment(paymentID); err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return
	}
	if err := h.PaymentService.ClosePayment(paymentID, reason); err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_close_failed")
		return
	}
	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondWithMappedError(c, err, adminPaymentErrorRules, response.CodeInternal, "error.payment_fetch_failed")
		return
	}
	response.Success(c, gin.H{
		"payment_id": payment.ID,
		"payment_no": payment.PaymentNo,
		"status":     payment.Status,
	})
}

func parseAdminPaymentID(c *gin.Context) (uint, bool) {
	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "error.payment_invalid", nil)
		return 0, false
	}
	return uint(paymentID), true
}

func buildAdminPaymentFilter(c *gin.Context, page, pageSize int) (repository.PaymentListFilter, error) {
	filter := repository.PaymentListFilter{
		Page:      page,
		PageSize:  pageSize,
		PaymentNo: strings.TrimSpace(c.Query("payment_no")),
		Channel:   strings.ToLower(strings.TrimSpace(c.Query("channel"))),
		Status:    strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid order_id %q", raw)
		}
		filter.OrderID = uint(parsed)
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid user_id %q", raw)
		}
		filter.UserID = uint(parsed)
	}
	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid created_from %q", raw)
		}
		filter.CreatedFrom = &parsed
	}
	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid created_to %q", raw)
		}
		filter.CreatedTo = &parsed
	}
	return filter, nil
}

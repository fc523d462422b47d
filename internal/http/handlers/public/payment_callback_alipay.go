package public

import (
	"strings"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/payment/alipay"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AlipayCallback 支付宝异步通知
func (h *Handler) AlipayCallback(c *gin.Context) {
	log := requestLog(c)
	form, err := parseCallbackForm(c)
	if err != nil {
		log.Warnw("alipay_callback_form_parse_failed", "error", err)
		c.String(200, constants.AlipayCallbackFail)
		return
	}
	if !isAlipayCallbackForm(form) {
		log.Warnw("alipay_callback_not_matched", "client_ip", c.ClientIP())
		c.String(200, constants.AlipayCallbackFail)
		return
	}

	paymentNo := strings.TrimSpace(getFirstValue(form, "out_trade_no"))
	tradeNo := strings.TrimSpace(getFirstValue(form, "trade_no"))
	tradeStatus := strings.TrimSpace(getFirstValue(form, "trade_status"))
	log.Infow("alipay_callback_received",
		"client_ip", c.ClientIP(),
		"out_trade_no", paymentNo,
		"trade_no", tradeNo,
		"trade_status", tradeStatus,
		"raw_form", callbackRawFormForLog(form),
	)

	if err := alipay.VerifyCallback(&h.Config.Payment.Alipay, form); err != nil {
		log.Warnw("alipay_callback_signature_invalid",
			"out_trade_no", paymentNo,
			"error", err,
		)
		c.String(200, constants.AlipayCallbackFail)
		return
	}

	payment, err := h.PaymentRepo.GetByPaymentNo(paymentNo)
	if err != nil || payment == nil {
		log.Warnw("alipay_callback_payment_not_found",
			"out_trade_no", paymentNo,
			"trade_no", tradeNo,
			"error", err,
		)
		c.String(200, constants.AlipayCallbackFail)
		return
	}

	status, ok := alipay.ToPaymentStatus(tradeStatus)
	if !ok {
		log.Warnw("alipay_callback_trade_status_unknown",
			"out_trade_no", paymentNo,
			"trade_status", tradeStatus,
		)
		c.String(200, constants.AlipayCallbackFail)
		return
	}
	if status != constants.PaymentStatusPaid {
		// 等待支付或关闭事件只记录，交给查询同步与到期扫描处理
		log.Infow("alipay_callback_ignored",
			"out_trade_no", paymentNo,
			"trade_status", tradeStatus,
		)
		c.String(200, constants.AlipayCallbackSuccess)
		return
	}

	amount := int64(0)
	amountKnown := false
	if raw := strings.TrimSpace(getFirstValue(form, "total_amount")); raw != "" {
		parsed, err := models.YuanStringToMinor(raw)
		if err != nil {
			log.Warnw("alipay_callback_amount_invalid",
				"out_trade_no", paymentNo,
				"total_amount", raw,
				"error", err,
			)
			c.String(200, constants.AlipayCallbackFail)
			return
		}
		amount = parsed
		amountKnown = true
	}

	payload := make(map[string]interface{}, len(form))
	for key, values := range form {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	err = h.PaymentService.HandleCallbackSuccess(service.CallbackSuccessInput{
		PaymentNo:      paymentNo,
		ChannelTradeNo: tradeNo,
		PaidAmount:     amount,
		AmountKnown:    amountKnown,
		PaidAt:         parseAlipayPaidAt(getFirstValue(form, "gmt_payment"), getFirstValue(form, "notify_time")),
		ClientIP:       c.ClientIP(),
		RawPayload:     payload,
	})
	if err != nil {
		log.Warnw("alipay_callback_handle_failed",
			"out_trade_no", paymentNo,
			"trade_no", tradeNo,
			"error", err,
		)
		c.String(200, constants.AlipayCallbackFail)
		return
	}
	log.Infow("alipay_callback_processed",
		"out_trade_no", paymentNo,
		"trade_no", tradeNo,
	)
	c.String(200, constants.AlipayCallbackSuccess)
}

func isAlipayCallbackForm(form map[string][]string) bool {
	if strings.TrimSpace(getFirstValue(form, "sign")) == "" {
		return false
	}
	hasNotifyField := strings.TrimSpace(getFirstValue(form, "notify_id")) != "" ||
		strings.TrimSpace(getFirstValue(form, "notify_type")) != "" ||
		strings.TrimSpace(getFirstValue(form, "buyer_id")) != ""
	if !hasNotifyField {
		return false
	}
	return strings.TrimSpace(getFirstValue(form, "out_trade_no")) != ""
}

func parseAlipayPaidAt(values ...string) *time.Time {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return &parsed
		}
	}
	return nil
}

package public

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/payment/wechatpay"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// WechatPayCallback 微信支付异步通知
func (h *Handler) WechatPayCallback(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("wechat_callback_body_read_failed", "error", err)
		respondWechatCallback(c, false)
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if !isWechatCallbackRequest(c, body) {
		log.Warnw("wechat_callback_not_matched", "client_ip", c.ClientIP())
		respondWechatCallback(c, false)
		return
	}

	log.Infow("wechat_callback_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"wechatpay_timestamp", strings.TrimSpace(c.GetHeader("Wechatpay-Timestamp")),
		"wechatpay_serial", strings.TrimSpace(c.GetHeader("Wechatpay-Serial")),
		"raw_body", callbackRawBodyForLog(body),
	)

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	result, err := wechatpay.VerifyAndDecodeWebhook(c.Request.Context(), &h.Config.Payment.WechatPay, headers, body)
	if err != nil {
		log.Warnw("wechat_callback_verify_failed", "error", err)
		respondWechatCallback(c, false)
		return
	}

	if result.Status != constants.PaymentStatusPaid {
		// 非支付成功事件只记录，交给查询同步与到期扫描处理
		log.Infow("wechat_callback_ignored",
			"payment_no", result.PaymentNo,
			"trade_state", result.TradeState,
		)
		respondWechatCallback(c, true)
		return
	}

	err = h.PaymentService.HandleCallbackSuccess(service.CallbackSuccessInput{
		PaymentNo:      result.PaymentNo,
		ChannelTradeNo: result.ChannelTradeNo,
		PaidAmount:     result.Amount,
		AmountKnown:    result.Amount > 0,
		PaidAt:         result.PaidAt,
		ClientIP:       c.ClientIP(),
		RawPayload:     result.Raw,
	})
	if err != nil {
		log.Warnw("wechat_callback_handle_failed",
			"payment_no", result.PaymentNo,
			"channel_trade_no", result.ChannelTradeNo,
			"error", err,
		)
		respondWechatCallback(c, false)
		return
	}
	log.Infow("wechat_callback_processed",
		"payment_no", result.PaymentNo,
		"channel_trade_no", result.ChannelTradeNo,
	)
	respondWechatCallback(c, true)
}

func isWechatCallbackRequest(c *gin.Context, body []byte) bool {
	if strings.TrimSpace(c.GetHeader("Wechatpay-Signature")) == "" {
		return false
	}
	if strings.TrimSpace(c.GetHeader("Wechatpay-Timestamp")) == "" {
		return false
	}
	if strings.TrimSpace(c.GetHeader("Wechatpay-Nonce")) == "" {
		return false
	}
	if strings.TrimSpace(c.GetHeader("Wechatpay-Serial")) == "" {
		return false
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	resourceRaw, ok := payload["resource"]
	if !ok {
		return false
	}
	_, ok = resourceRaw.(map[string]interface{})
	return ok
}

func respondWechatCallback(c *gin.Context, success bool) {
	if success {
		c.JSON(http.StatusOK, gin.H{
			"code":    "SUCCESS",
			"message": "成功",
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "FAIL",
		"message": "失败",
	})
}

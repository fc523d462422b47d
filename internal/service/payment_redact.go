package service

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/repository"
)

var (
	cardNumberPattern = regexp.MustCompile(`\d{13,19}`)
	mobilePattern     = regexp.MustCompile(`1\d{10}`)
)

// sensitiveKeyMarkers 命中即整值打码的键名片段
var sensitiveKeyMarkers = []string{"key", "secret", "token", "password", "private"}

// redactPayload 序列化载荷并脱敏后返回，供支付日志落库。
// 日志仅追加，写入前必须完成脱敏。
func redactPayload(payload interface{}) string {
	if payload == nil {
		return ""
	}
	var node interface{}
	switch value := payload.(type) {
	case string:
		if strings.TrimSpace(value) == "" {
			return ""
		}
		if err := json.Unmarshal([]byte(value), &node); err != nil {
			return redactText(value)
		}
	case []byte:
		if len(value) == 0 {
			return ""
		}
		if err := json.Unmarshal(value, &node); err != nil {
			return redactText(string(value))
		}
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return ""
		}
		if err := json.Unmarshal(raw, &node); err != nil {
			return redactText(string(raw))
		}
	}
	redacted := redactNode(node)
	out, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return string(out)
}

func redactNode(node interface{}) interface{} {
	switch value := node.(type) {
	case map[string]interface{}:
		for key, child := range value {
			if isSensitiveKey(key) {
				value[key] = "***"
				continue
			}
			value[key] = redactNode(child)
		}
		return value
	case []interface{}:
		for i, child := range value {
			value[i] = redactNode(child)
		}
		return value
	case string:
		return redactText(value)
	default:
		return node
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, marker := range sensitiveKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// redactText 打码文本中的卡号与手机号。卡号保留前六后四，手机号保留前三后四。
func redactText(text string) string {
	if text == "" {
		return text
	}
	text = cardNumberPattern.ReplaceAllStringFunc(text, func(match string) string {
		return match[:6] + strings.Repeat("*", len(match)-10) + match[len(match)-4:]
	})
	text = mobilePattern.ReplaceAllStringFunc(text, func(match string) string {
		return match[:3] + "****" + match[7:]
	})
	return text
}

// appendPaymentLogTx 事务内追加支付流水日志，失败时由调用方回滚整个事务。
// 状态迁移与流水必须同时落库或同时不落。
func appendPaymentLogTx(repo repository.PaymentLogRepository, entry *models.PaymentLog) error {
	if repo == nil || entry == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return repo.Create(entry)
}

// appendPaymentLog 事务外追加支付流水日志，用于拒绝路径。
// 主事务已回滚，这里失败只告警，不再阻断。
func appendPaymentLog(repo repository.PaymentLogRepository, entry *models.PaymentLog) {
	if repo == nil || entry == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := repo.Create(entry); err != nil {
		logger.SW().Warnw("payment_log_append_failed",
			"payment_id", entry.PaymentID,
			"action", entry.Action,
			"error", err,
		)
	}
}

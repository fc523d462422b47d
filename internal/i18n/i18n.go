package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultLocale 默认语言
const DefaultLocale = "zh-CN"

var supportedLocales = map[string]bool{
	"zh-CN": true,
	"en-US": true,
}

// ResolveLocale 解析请求语言。优先 query 参数 lang，其次 Accept-Language。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := normalizeLocale(c.Query("lang")); lang != "" {
		return lang
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		if lang := normalizeLocale(strings.SplitN(part, ";", 2)[0]); lang != "" {
			return lang
		}
	}
	return DefaultLocale
}

func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "zh"):
		return "zh-CN"
	case strings.HasPrefix(lower, "en"):
		return "en-US"
	}
	if supportedLocales[raw] {
		return raw
	}
	return ""
}

// T 按语言取消息文案。未知 key 原样返回，便于定位遗漏。
func T(locale, key string) string {
	if !supportedLocales[locale] {
		locale = DefaultLocale
	}
	if messages, ok := catalog[locale]; ok {
		if msg, ok := messages[key]; ok {
			return msg
		}
	}
	if msg, ok := catalog[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 取文案后套用 fmt 格式化参数。
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

var catalog = map[string]map[string]string{
	"zh-CN": {
		"error.bad_request":                    "请求参数无效",
		"error.internal":                       "服务器内部错误",
		"error.unauthorized":                   "未登录或登录已过期",
		"error.forbidden":                      "没有权限执行该操作",
		"error.rate_limited":                   "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":         "限流服务不可用，请稍后再试",
		"error.login_too_many":                 "登录尝试过于频繁，请 %d 秒后再试",
		"error.payment_create_too_many":        "下单过于频繁，请 %d 秒后再试",
		"error.jwt_secret_missing":             "服务端鉴权配置缺失",
		"error.auth_header_missing":            "缺少 Authorization 请求头",
		"error.auth_header_invalid":            "Authorization 请求头格式无效",
		"error.token_invalid":                  "登录凭证无效",
		"error.token_revoked":                  "登录凭证已失效，请重新登录",
		"error.login_failed":                   "用户名或密码错误",
		"error.weak_password":                  "密码强度不足",
		"error.password_invalid":               "密码错误",
		"error.order_not_found":                "订单不存在",
		"error.order_status_invalid":           "订单状态不允许当前操作",
		"error.order_fetch_failed":             "订单查询失败",
		"error.order_owner_mismatch":           "订单不属于当前用户",
		"error.payment_invalid":                "支付参数无效",
		"error.payment_not_found":              "支付单不存在",
		"error.payment_fetch_failed":           "支付单查询失败",
		"error.payment_create_failed":          "支付单创建失败",
		"error.payment_state_conflict":         "支付单状态不允许当前操作",
		"error.payment_amount_mismatch":        "支付金额不一致",
		"error.payment_signature_invalid":      "支付回调验签失败",
		"error.payment_gateway_request_failed": "支付网关请求失败，请稍后重试",
		"error.payment_gateway_rejected":       "支付网关拒绝了本次请求",
		"error.payment_refund_amount_invalid":  "退款金额无效",
		"error.payment_refund_failed":          "退款失败",
		"error.payment_query_failed":           "支付状态查询失败",
		"error.payment_callback_failed":        "支付回调处理失败",
		"error.payment_close_failed":           "支付单关闭失败",
		"error.admin_login_invalid":            "用户名或密码错误",
		"error.admin_id_invalid":               "管理员身份缺失",
		"error.admin_id_type_invalid":          "管理员身份无效",
		"error.user_id_invalid":                "用户身份缺失",
		"error.user_id_type_invalid":           "用户身份无效",
		"error.user_not_found":                 "用户不存在",
		"error.save_failed":                    "保存失败",
		"error.config_fetch_failed":            "配置读取失败",
		"error.password_weak":                  "密码强度不足",
		"error.password_old_invalid":           "原密码错误",
		"error.password_min_length":            "密码长度至少 %d 位",
		"error.password_require_upper":         "密码需要包含大写字母",
		"error.password_require_lower":         "密码需要包含小写字母",
		"error.password_require_number":        "密码需要包含数字",
		"error.password_require_special":       "密码需要包含特殊字符",
		"error.admin_create_failed":            "管理员创建失败",
		"error.admin_update_failed":            "管理员更新失败",
		"error.admin_delete_failed":            "管理员删除失败",
		"error.admin_delete_last_forbidden":    "不能删除最后一个管理员",
		"error.admin_delete_protected":         "该管理员受保护，禁止删除",
		"error.admin_delete_self_forbidden":    "不能删除当前登录的管理员",
		"error.admin_username_exists":          "用户名已存在",
		"error.admin_username_invalid":         "用户名格式无效",
	},
	"en-US": {
		"error.bad_request":                    "Invalid request parameters",
		"error.internal":                       "Internal server error",
		"error.unauthorized":                   "Not logged in or session expired",
		"error.forbidden":                      "Permission denied",
		"error.rate_limited":                   "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":         "Rate limiter unavailable, please retry later",
		"error.login_too_many":                 "Too many login attempts, retry in %d seconds",
		"error.payment_create_too_many":        "Too many payment requests, retry in %d seconds",
		"error.jwt_secret_missing":             "Server auth configuration missing",
		"error.auth_header_missing":            "Missing Authorization header",
		"error.auth_header_invalid":            "Invalid Authorization header",
		"error.token_invalid":                  "Invalid token",
		"error.token_revoked":                  "Token revoked, please login again",
		"error.login_failed":                   "Invalid username or password",
		"error.weak_password":                  "Password is too weak",
		"error.password_invalid":               "Incorrect password",
		"error.order_not_found":                "Order not found",
		"error.order_status_invalid":           "Order status does not allow this operation",
		"error.order_fetch_failed":             "Failed to fetch order",
		"error.order_owner_mismatch":           "Order does not belong to the current user",
		"error.payment_invalid":                "Invalid payment parameters",
		"error.payment_not_found":              "Payment not found",
		"error.payment_fetch_failed":           "Failed to fetch payment",
		"error.payment_create_failed":          "Failed to create payment",
		"error.payment_state_conflict":         "Payment status does not allow this operation",
		"error.payment_amount_mismatch":        "Payment amount mismatch",
		"error.payment_signature_invalid":      "Payment callback signature verification failed",
		"error.payment_gateway_request_failed": "Payment gateway request failed, please retry later",
		"error.payment_gateway_rejected":       "Payment gateway rejected the request",
		"error.payment_refund_amount_invalid":  "Invalid refund amount",
		"error.payment_refund_failed":          "Refund failed",
		"error.payment_query_failed":           "Failed to query payment status",
		"error.payment_callback_failed":        "Failed to process payment callback",
		"error.payment_close_failed":           "Failed to close payment",
		"error.admin_login_invalid":            "Invalid username or password",
		"error.admin_id_invalid":               "Admin identity missing",
		"error.admin_id_type_invalid":          "Admin identity invalid",
		"error.user_id_invalid":                "User identity missing",
		"error.user_id_type_invalid":           "User identity invalid",
		"error.user_not_found":                 "User not found",
		"error.save_failed":                    "Failed to save",
		"error.config_fetch_failed":            "Failed to load configuration",
		"error.password_weak":                  "Password is too weak",
		"error.password_old_invalid":           "Incorrect current password",
		"error.password_min_length":            "Password must be at least %d characters",
		"error.password_require_upper":         "Password must contain an uppercase letter",
		"error.password_require_lower":         "Password must contain a lowercase letter",
		"error.password_require_number":        "Password must contain a digit",
		"error.password_require_special":       "Password must contain a special character",
		"error.admin_create_failed":            "Failed to create admin",
		"error.admin_update_failed":            "Failed to update admin",
		"error.admin_delete_failed":            "Failed to delete admin",
		"error.admin_delete_last_forbidden":    "Cannot delete the last admin",
		"error.admin_delete_protected":         "This admin is protected and cannot be deleted",
		"error.admin_delete_self_forbidden":    "Cannot delete the currently logged-in admin",
		"error.admin_username_exists":          "Username already exists",
		"error.admin_username_invalid":         "Invalid username format",
	},
}

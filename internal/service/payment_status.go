package service

import (
	"strings"

	"github.com/youche-next/internal/constants"
)

// allowedPaymentTransitions 支付单状态机。未列出的迁移一律拒绝。
var allowedPaymentTransitions = map[string]map[string]bool{
	constants.PaymentStatusPending: {
		constants.PaymentStatusPaid:   true,
		constants.PaymentStatusClosed: true,
	},
	constants.PaymentStatusPaid: {
		constants.PaymentStatusRefunded: true,
	},
}

// isPaymentTransitionAllowed 判断支付单状态迁移是否合法。同状态视为合法（幂等重放）。
func isPaymentTransitionAllowed(current, target string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	target = strings.ToLower(strings.TrimSpace(target))
	if current == "" || target == "" {
		return false
	}
	if current == target {
		return true
	}
	nexts, ok := allowedPaymentTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// isTerminalPaymentStatus 判断是否终态。closed 与 refunded 不再接受任何迁移。
func isTerminalPaymentStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case constants.PaymentStatusClosed, constants.PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

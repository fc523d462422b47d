package service

import (
	"testing"

	"github.com/youche-next/internal/constants"
)

func TestIsPaymentTransitionAllowed(t *testing.T) {
	cases := []struct {
		current string
		target  string
		allowed bool
	}{
		{constants.PaymentStatusPending, constants.PaymentStatusPaid, true},
		{constants.PaymentStatusPending, constants.PaymentStatusClosed, true},
		{constants.PaymentStatusPaid, constants.PaymentStatusRefunded, true},
		{constants.PaymentStatusPending, constants.PaymentStatusRefunded, false},
		{constants.PaymentStatusPaid, constants.PaymentStatusClosed, false},
		{constants.PaymentStatusClosed, constants.PaymentStatusPaid, false},
		{constants.PaymentStatusRefunded, constants.PaymentStatusPaid, false},
		{constants.PaymentStatusClosed, constants.PaymentStatusRefunded, false},
		// 同状态重放视为合法
		{constants.PaymentStatusPaid, constants.PaymentStatusPaid, true},
		{constants.PaymentStatusClosed, constants.PaymentStatusClosed, true},
		{"", constants.PaymentStatusPaid, false},
		{constants.PaymentStatusPending, "", false},
		// 大小写与空白归一
		{"  Pending ", "PAID", true},
	}
	for _, tc := range cases {
		if got := isPaymentTransitionAllowed(tc.current, tc.target); got != tc.allowed {
			t.Fatalf("transition %q -> %q = %v, expected %v", tc.current, tc.target, got, tc.allowed)
		}
	}
}

func TestIsTerminalPaymentStatus(t *testing.T) {
	if !isTerminalPaymentStatus(constants.PaymentStatusClosed) {
		t.Fatal("expected closed to be terminal")
	}
	if !isTerminalPaymentStatus(constants.PaymentStatusRefunded) {
		t.Fatal("expected refunded to be terminal")
	}
	if isTerminalPaymentStatus(constants.PaymentStatusPending) {
		t.Fatal("expected pending to be non-terminal")
	}
	if isTerminalPaymentStatus(constants.PaymentStatusPaid) {
		t.Fatal("expected paid to be non-terminal")
	}
}

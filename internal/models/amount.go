package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 金额换算：业务内部只存整数分，仅在网关报文的边界转换为字符串元。

// MinorToYuanString 将分转换为 2 位小数的元字符串（如 150000 -> "1500.00"）
func MinorToYuanString(minor int64) string {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// YuanStringToMinor 将元字符串转换为分，精度超过分时报错
func YuanStringToMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	fen := d.Mul(decimal.NewFromInt(100))
	if !fen.Equal(fen.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return fen.IntPart(), nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/payment/alipay"
	"github.com/youche-next/internal/payment/wechatpay"
	"github.com/youche-next/internal/repository"

	"gorm.io/gorm"
)

// RefundInput 退款输入。Amount 为 0 表示退剩余可退全额。
type RefundInput struct {
	PaymentID  uint
	Amount     int64
	Reason     string
	OperatorID *uint
	ClientIP   string
}

// RefundResult 退款返回
type RefundResult struct {
	Payment        *models.Payment
	RefundNo       string
	RefundedAmount int64
}

// Refund 对已支付单发起退款，支持多次部分退款。
//
// 额度校验与累计额更新在同一把行锁内完成，并发退款不会超出实付金额。
// 累计退满转已退款并同步订单；部分退款后支付单保持已支付。
func (s *PaymentService) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	refundNo := generateRefundNo()
	var result *RefundResult

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		payment, err := paymentRepo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.Status != constants.PaymentStatusPaid {
			return fmt.Errorf("%w: 当前状态 %s", ErrPaymentStateConflict, payment.Status)
		}

		remaining := payment.RefundableAmount()
		amount := input.Amount
		if amount == 0 {
			amount = remaining
		}
		if amount <= 0 || amount > remaining {
			return fmt.Errorf("%w: 可退 %d 请求 %d", ErrPaymentRefundAmountInvalid, remaining, amount)
		}

		channelResponse, err := s.requestChannelRefund(ctx, payment, refundNo, amount, input.Reason)
		if err != nil {
			return err
		}

		previousStatus := payment.Status
		now := time.Now()
		payment.RefundAmount += amount
		if input.Reason != "" {
			payment.RefundReason = input.Reason
		}
		if payment.RefundAmount >= payment.Amount {
			payment.Status = constants.PaymentStatusRefunded
			payment.RefundedAt = &now
		}
		if err := paymentRepo.Update(payment); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}

		if payment.Status == constants.PaymentStatusRefunded {
			if err := markOrderRefunded(orderRepo, payment.OrderID, now); err != nil {
				return err
			}
		}

		refundLog := &models.PaymentLog{
			PaymentID:  payment.ID,
			Action:     constants.PaymentLogActionRefund,
			Status:     previousStatus,
			NewStatus:  payment.Status,
			ClientIP:   input.ClientIP,
			OperatorID: input.OperatorID,
			RequestData: redactPayload(map[string]interface{}{
				"refund_no": refundNo,
				"amount":    amount,
				"reason":    input.Reason,
			}),
			ResponseData: redactPayload(channelResponse),
		}
		if err := appendPaymentLogTx(s.logRepoTx(tx), refundLog); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		result = &RefundResult{
			Payment:        payment,
			RefundNo:       refundNo,
			RefundedAmount: amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.SW().Infow("payment_refunded",
		"payment_id", input.PaymentID,
		"refund_no", refundNo,
		"amount", result.RefundedAmount,
		"status", result.Payment.Status,
	)
	return result, nil
}

func (s *PaymentService) requestChannelRefund(ctx context.Context, payment *models.Payment, refundNo string, amount int64, reason string) (interface{}, error) {
	switch payment.Channel {
	case constants.PaymentChannelWalletQR:
		result, err := wechatpay.Refund(ctx, s.wechatCfg, wechatpay.RefundInput{
			PaymentNo:    payment.PaymentNo,
			RefundNo:     refundNo,
			RefundAmount: amount,
			TotalAmount:  payment.Amount,
			Reason:       reason,
		})
		if err != nil {
			return nil, s.mapWechatError(err)
		}
		return result.Raw, nil
	case constants.PaymentChannelWebRedirect:
		result, err := alipay.Refund(ctx, s.alipayCfg, alipay.RefundInput{
			PaymentNo:    payment.PaymentNo,
			RefundNo:     refundNo,
			RefundAmount: amount,
			Reason:       reason,
		})
		if err != nil {
			return nil, s.mapAlipayError(err)
		}
		return result.Raw, nil
	default:
		return nil, fmt.Errorf("%w: 不支持的支付渠道 %s", ErrPaymentInvalid, payment.Channel)
	}
}

// markOrderRefunded 同事务内同步订单退款状态
func markOrderRefunded(orderRepo repository.OrderRepository, orderID uint, refundedAt time.Time) error {
	order, err := orderRepo.GetByIDForUpdate(orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusRefunded {
		return nil
	}
	updates := map[string]interface{}{
		"refund_time": refundedAt,
		"updated_at":  time.Now(),
	}
	if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusRefunded, updates); err != nil {
		return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	return nil
}

// generateRefundNo 生成退款单号：R + 时间戳 + 6 位随机数字
func generateRefundNo() string {
	return "R" + time.Now().Format("20060102150405") + randNumericCode(6)
}

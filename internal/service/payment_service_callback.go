package service

import (
	"fmt"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/repository"

	"gorm.io/gorm"
)

// CallbackSuccessInput 渠道支付成功回调输入。验签由调用方完成。
type CallbackSuccessInput struct {
	PaymentNo      string
	ChannelTradeNo string
	PaidAmount     int64
	AmountKnown    bool
	PaidAt         *time.Time
	ClientIP       string
	RawPayload     interface{}
}

// HandleCallbackSuccess 处理渠道支付成功通知。
//
// 同一支付单的重复通知幂等：已支付时仅补写渠道单号，不产生第二次状态迁移。
// 渠道上报金额与本地金额必须整数相等，不等视为异常拒绝，状态不变。
func (s *PaymentService) HandleCallbackSuccess(input CallbackSuccessInput) error {
	if input.PaymentNo == "" {
		return fmt.Errorf("%w: 回调缺少支付单号", ErrPaymentInvalid)
	}

	// 拒绝路径的流水在事务回滚后补写，成功路径的流水随状态迁移同事务落库
	var rejectionLog *models.PaymentLog
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		located, err := paymentRepo.GetByPaymentNo(input.PaymentNo)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		if located == nil {
			return ErrPaymentNotFound
		}
		payment, err := paymentRepo.GetByIDForUpdate(located.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		if payment == nil {
			return ErrPaymentNotFound
		}

		// 幂等处理：重复成功通知只补渠道单号
		if payment.Status == constants.PaymentStatusPaid {
			if input.ChannelTradeNo != "" && payment.ChannelTradeNo != "" && payment.ChannelTradeNo != input.ChannelTradeNo {
				logger.SW().Warnw("payment_callback_trade_no_mismatch",
					"payment_no", payment.PaymentNo,
					"stored_trade_no", payment.ChannelTradeNo,
					"callback_trade_no", input.ChannelTradeNo,
				)
			}
			if payment.ChannelTradeNo == "" && input.ChannelTradeNo != "" {
				payment.ChannelTradeNo = input.ChannelTradeNo
				if err := paymentRepo.Update(payment); err != nil {
					return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
				}
			}
			if err := appendPaymentLogTx(s.logRepoTx(tx), s.buildCallbackLog(payment, constants.PaymentStatusPaid, input)); err != nil {
				return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
			}
			return nil
		}

		if !isPaymentTransitionAllowed(payment.Status, constants.PaymentStatusPaid) {
			// 关单后才到账是对账必须介入的异常，按错误级别记录
			logger.SW().Errorw("payment_paid_after_close",
				"payment_no", payment.PaymentNo,
				"status", payment.Status,
				"channel_trade_no", input.ChannelTradeNo,
			)
			rejectionLog = s.buildCallbackLog(payment, payment.Status, input)
			return fmt.Errorf("%w: 当前状态 %s", ErrPaymentStateConflict, payment.Status)
		}

		if input.AmountKnown && input.PaidAmount != payment.Amount {
			logger.SW().Warnw("payment_callback_amount_mismatch",
				"payment_no", payment.PaymentNo,
				"expected", payment.Amount,
				"actual", input.PaidAmount,
			)
			rejectionLog = s.buildCallbackLog(payment, payment.Status, input)
			return fmt.Errorf("%w: 期望 %d 实际 %d", ErrPaymentAmountMismatch, payment.Amount, input.PaidAmount)
		}

		previousStatus := payment.Status
		paidAt := time.Now()
		if input.PaidAt != nil {
			paidAt = *input.PaidAt
		}
		payment.Status = constants.PaymentStatusPaid
		payment.PaidAt = &paidAt
		if input.ChannelTradeNo != "" {
			payment.ChannelTradeNo = input.ChannelTradeNo
		}
		if err := paymentRepo.Update(payment); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}

		if err := markOrderPaid(orderRepo, payment.OrderID, paidAt); err != nil {
			return err
		}

		if err := appendPaymentLogTx(s.logRepoTx(tx), s.buildCallbackLog(payment, previousStatus, input)); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		return nil
	})

	if rejectionLog != nil {
		appendPaymentLog(s.paymentLogRepo, rejectionLog)
	}
	if err != nil {
		return err
	}
	logger.SW().Infow("payment_callback_success",
		"payment_no", input.PaymentNo,
		"channel_trade_no", input.ChannelTradeNo,
	)
	return nil
}

func (s *PaymentService) buildCallbackLog(payment *models.Payment, previousStatus string, input CallbackSuccessInput) *models.PaymentLog {
	return &models.PaymentLog{
		PaymentID:   payment.ID,
		Action:      constants.PaymentLogActionCallback,
		Status:      previousStatus,
		NewStatus:   payment.Status,
		ClientIP:    input.ClientIP,
		RequestData: redactPayload(input.RawPayload),
	}
}

// markOrderPaid 同事务内同步订单状态。订单已是已支付时幂等跳过。
func markOrderPaid(orderRepo repository.OrderRepository, orderID uint, paidAt time.Time) error {
	order, err := orderRepo.GetByIDForUpdate(orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusPaid {
		return nil
	}
	if order.Status != constants.OrderStatusPendingPayment {
		logger.SW().Warnw("order_status_unexpected_on_payment",
			"order_id", order.ID,
			"status", order.Status,
		)
		return nil
	}
	updates := map[string]interface{}{
		"pay_time":   paidAt,
		"updated_at": time.Now(),
	}
	if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusPaid, updates); err != nil {
		return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	return nil
}

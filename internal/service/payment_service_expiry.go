package service

import (
	"fmt"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"

	"gorm.io/gorm"
)

// ClosePayment 关闭单个待支付单。非待支付状态幂等跳过。
func (s *PaymentService) ClosePayment(paymentID uint, reason string) error {
	return s.closePendingPayment(paymentID, reason, nil)
}

// ClosePaymentIfExpired 关闭已到期的待支付单。
// 延迟任务可能被提前投递或受时钟偏差影响，未到期的支付单原样保留。
func (s *PaymentService) ClosePaymentIfExpired(paymentID uint, now time.Time, reason string) error {
	return s.closePendingPayment(paymentID, reason, &now)
}

func (s *PaymentService) closePendingPayment(paymentID uint, reason string, expiredBy *time.Time) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.GetByIDForUpdate(paymentID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.Status != constants.PaymentStatusPending {
			return nil
		}
		if expiredBy != nil && payment.ExpireTime.After(*expiredBy) {
			return nil
		}
		now := time.Now()
		payment.Status = constants.PaymentStatusClosed
		payment.ClosedAt = &now
		if err := paymentRepo.Update(payment); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		closeLog := &models.PaymentLog{
			PaymentID:   payment.ID,
			Action:      constants.PaymentLogActionClose,
			Status:      constants.PaymentStatusPending,
			NewStatus:   constants.PaymentStatusClosed,
			RequestData: redactPayload(map[string]interface{}{"reason": reason}),
		}
		if err := appendPaymentLogTx(s.logRepoTx(tx), closeLog); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
		}
		return nil
	})
}

// CloseExpiredPayments 批量关闭已到期的待支付单，返回关闭数量。
//
// 到期判定为 expire_time <= now，恰好等于当前时刻的支付单同样关闭。
// 批量关单不写逐单流水，关闭时刻由 closed_at 承载。
func (s *PaymentService) CloseExpiredPayments(now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	expired, err := s.paymentRepo.ListExpiredPending(now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	closed := 0
	for i := range expired {
		payment := &expired[i]
		err := models.DB.Transaction(func(tx *gorm.DB) error {
			paymentRepo := s.paymentRepo.WithTx(tx)
			locked, err := paymentRepo.GetByIDForUpdate(payment.ID)
			if err != nil {
				return err
			}
			// 扫描与回调可能竞争，以锁内状态为准
			if locked == nil || locked.Status != constants.PaymentStatusPending {
				return nil
			}
			if locked.ExpireTime.After(now) {
				return nil
			}
			closedAt := time.Now()
			locked.Status = constants.PaymentStatusClosed
			locked.ClosedAt = &closedAt
			if err := paymentRepo.Update(locked); err != nil {
				return err
			}
			closed++
			return nil
		})
		if err != nil {
			logger.SW().Warnw("payment_expire_close_failed",
				"payment_id", payment.ID,
				"error", err,
			)
		}
	}
	if closed > 0 {
		logger.SW().Infow("payments_expired_closed",
			"count", closed,
		)
	}
	return closed, nil
}

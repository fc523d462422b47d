package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/provider"
	"github.com/youche-next/internal/queue"
	"github.com/youche-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentExpireClose, c.handlePaymentExpireClose)
	mux.HandleFunc(queue.TaskPaymentAutoRequery, c.handlePaymentAutoRequery)
}

func (c *Consumer) handlePaymentExpireClose(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_expire_close_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentExpireClosePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_expire_close_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_payment_expire_close_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_payment_expire_close_skip_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	if err := c.PaymentService.ClosePaymentIfExpired(payload.PaymentID, time.Now(), "支付超时"); err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			logger.Debugw("worker_payment_expire_close_skip_not_found", "payment_id", payload.PaymentID)
			return nil
		default:
			logger.Warnw("worker_payment_expire_close_failed", "payment_id", payload.PaymentID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handlePaymentAutoRequery(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_auto_requery_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentAutoRequeryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_auto_requery_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_payment_auto_requery_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_payment_auto_requery_skip_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	if _, err := c.PaymentService.QueryRemoteAndSync(ctx, payload.PaymentID); err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			logger.Debugw("worker_payment_auto_requery_skip_not_found", "payment_id", payload.PaymentID)
			return nil
		case errors.Is(err, service.ErrPaymentStateConflict):
			logger.Debugw("worker_payment_auto_requery_skip_state_conflict", "payment_id", payload.PaymentID)
			return nil
		case errors.Is(err, service.ErrPaymentGatewayRequestFailed):
			// 渠道暂不可用，交给队列重试
			logger.Warnw("worker_payment_auto_requery_gateway_unavailable", "payment_id", payload.PaymentID, "error", err)
			return err
		case errors.Is(err, service.ErrPaymentGatewayRejected):
			logger.Warnw("worker_payment_auto_requery_rejected", "payment_id", payload.PaymentID, "error", err)
			return nil
		default:
			logger.Warnw("worker_payment_auto_requery_failed", "payment_id", payload.PaymentID, "error", err)
			return err
		}
	}
	return nil
}

package queue

import (
	"encoding/json"

	"github.com/youche-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentExpireClose 支付单到期关闭任务
	TaskPaymentExpireClose = constants.TaskPaymentExpireClose
	// TaskPaymentAutoRequery 支付单主动对账任务
	TaskPaymentAutoRequery = constants.TaskPaymentAutoRequery
)

// PaymentExpireClosePayload 支付单到期关闭任务载荷
type PaymentExpireClosePayload struct {
	PaymentID uint `json:"payment_id"`
}

// PaymentAutoRequeryPayload 支付单主动对账任务载荷
type PaymentAutoRequeryPayload struct {
	PaymentID uint `json:"payment_id"`
}

// NewPaymentExpireCloseTask 创建支付单到期关闭任务
func NewPaymentExpireCloseTask(payload PaymentExpireClosePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentExpireClose, body), nil
}

// NewPaymentAutoRequeryTask 创建支付单主动对账任务
func NewPaymentAutoRequeryTask(payload PaymentAutoRequeryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentAutoRequery, body), nil
}

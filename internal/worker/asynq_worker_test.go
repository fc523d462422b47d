package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/provider"
	"github.com/youche-next/internal/queue"
	"github.com/youche-next/internal/repository"
	"github.com/youche-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.Payment{}, &models.PaymentLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	paymentService := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewPaymentLogRepository(db),
		repository.NewOrderRepository(db),
		nil,
		nil,
		nil,
		15*time.Minute,
	)
	return NewConsumer(&provider.Container{PaymentService: paymentService}), db
}

func createPendingPayment(t *testing.T, db *gorm.DB, paymentNo string) *models.Payment {
	t.Helper()
	order := &models.Order{
		OrderNo:       "O-" + paymentNo,
		BuyerID:       1001,
		VehicleID:     2001,
		Status:        constants.OrderStatusPendingPayment,
		DepositAmount: 500000,
		Currency:      constants.SiteCurrencyDefault,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := &models.Payment{
		PaymentNo:  paymentNo,
		OrderID:    order.ID,
		UserID:     order.BuyerID,
		Channel:    constants.PaymentChannelWalletQR,
		ClientType: constants.PaymentClientApp,
		Status:     constants.PaymentStatusPending,
		Amount:     order.DepositAmount,
		Currency:   order.Currency,
		ExpireTime: time.Now().Add(-time.Minute),
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func TestHandlePaymentExpireClose(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	payment := createPendingPayment(t, db, "PWK0001")

	task, err := queue.NewPaymentExpireCloseTask(queue.PaymentExpireClosePayload{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentExpireClose(context.Background(), task); err != nil {
		t.Fatalf("handle expire close failed: %v", err)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusClosed {
		t.Fatalf("expected closed status, got %s", reloaded.Status)
	}
}

func TestHandlePaymentExpireCloseKeepsUnexpiredPayment(t *testing.T) {
	consumer, db := setupConsumerTest(t)
	payment := createPendingPayment(t, db, "PWK0002")
	// 任务提前投递，支付单尚未到期
	if err := db.Model(payment).Update("expire_time", time.Now().Add(10*time.Minute)).Error; err != nil {
		t.Fatalf("set expire time failed: %v", err)
	}

	task, err := queue.NewPaymentExpireCloseTask(queue.PaymentExpireClosePayload{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentExpireClose(context.Background(), task); err != nil {
		t.Fatalf("handle expire close failed: %v", err)
	}

	var reloaded models.Payment
	if err := db.First(&reloaded, payment.ID).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if reloaded.Status != constants.PaymentStatusPending {
		t.Fatalf("expected payment still pending, got %s", reloaded.Status)
	}
}

func TestHandlePaymentExpireCloseMissingPayment(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task, err := queue.NewPaymentExpireCloseTask(queue.PaymentExpireClosePayload{PaymentID: 9999})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	// 支付单已不存在时任务静默完成，不进入重试
	if err := consumer.handlePaymentExpireClose(context.Background(), task); err != nil {
		t.Fatalf("expected nil error for missing payment, got %v", err)
	}
}

func TestHandlePaymentExpireCloseInvalidPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task := asynq.NewTask(queue.TaskPaymentExpireClose, []byte("not-json"))
	if err := consumer.handlePaymentExpireClose(context.Background(), task); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestHandlePaymentAutoRequeryMissingPayment(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task, err := queue.NewPaymentAutoRequeryTask(queue.PaymentAutoRequeryPayload{PaymentID: 9999})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentAutoRequery(context.Background(), task); err != nil {
		t.Fatalf("expected nil error for missing payment, got %v", err)
	}
}

func TestHandlePaymentExpireCloseZeroID(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task, err := queue.NewPaymentExpireCloseTask(queue.PaymentExpireClosePayload{})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handlePaymentExpireClose(context.Background(), task); err != nil {
		t.Fatalf("expected nil error for zero payment id, got %v", err)
	}
}

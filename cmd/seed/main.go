package main

import (
	"time"

	"github.com/youche-next/internal/config"
	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化默认管理员
	if err := models.InitDefaultAdmin("admin", "Admin@123456"); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	} else {
		stdLog.Println("Default admin ready: admin")
	}

	now := time.Now()
	paidAt := now.Add(-48 * time.Hour)

	// 添加示例订单，金额单位为分
	orders := []models.Order{
		{
			OrderNo:       "O20260801120000001",
			BuyerID:       1001,
			VehicleID:     2001,
			Status:        constants.OrderStatusPendingPayment,
			DepositAmount: 500000,
			Currency:      constants.SiteCurrencyDefault,
		},
		{
			OrderNo:       "O20260801120000002",
			BuyerID:       1001,
			VehicleID:     2002,
			Status:        constants.OrderStatusPendingPayment,
			DepositAmount: 300000,
			Currency:      constants.SiteCurrencyDefault,
		},
		{
			OrderNo:       "O20260728093000003",
			BuyerID:       1002,
			VehicleID:     2003,
			Status:        constants.OrderStatusPaid,
			DepositAmount: 800000,
			Currency:      constants.SiteCurrencyDefault,
			PayTime:       &paidAt,
		},
	}

	for _, order := range orders {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", order.OrderNo).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&order).Error; err != nil {
				stdLog.Printf("Failed to create order %s: %v", order.OrderNo, err)
			} else {
				stdLog.Printf("Created order: %s", order.OrderNo)
			}
		} else {
			stdLog.Printf("Order already exists: %s", order.OrderNo)
		}
	}

	// 为已支付订单补一条对应的支付单，方便联调退款链路
	var paidOrder models.Order
	if err := models.DB.Where("order_no = ?", "O20260728093000003").First(&paidOrder).Error; err == nil {
		var existing models.Payment
		if err := models.DB.Where("order_id = ? AND status = ?", paidOrder.ID, constants.PaymentStatusPaid).First(&existing).Error; err != nil {
			payment := models.Payment{
				PaymentNo:      "P20260728093012345678",
				OrderID:        paidOrder.ID,
				UserID:         paidOrder.BuyerID,
				Channel:        constants.PaymentChannelWalletQR,
				ClientType:     constants.PaymentClientApp,
				Status:         constants.PaymentStatusPaid,
				Amount:         paidOrder.DepositAmount,
				Currency:       paidOrder.Currency,
				ChannelTradeNo: "4200008888202607281234567890",
				PaidAt:         &paidAt,
				ExpireTime:     paidAt.Add(30 * time.Minute),
			}
			if err := models.DB.Create(&payment).Error; err != nil {
				stdLog.Printf("Failed to create payment %s: %v", payment.PaymentNo, err)
			} else {
				stdLog.Printf("Created payment: %s", payment.PaymentNo)
			}
		} else {
			stdLog.Printf("Payment already exists for order: %s", paidOrder.OrderNo)
		}
	}

	stdLog.Println("Seed data ready")
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/payment/alipay"
	"github.com/youche-next/internal/payment/wechatpay"
	"github.com/youche-next/internal/queue"
	"github.com/youche-next/internal/repository"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// PaymentService 支付服务
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	paymentLogRepo repository.PaymentLogRepository
	orderRepo      repository.OrderRepository
	queueClient    *queue.Client
	wechatCfg      *wechatpay.Config
	alipayCfg      *alipay.Config
	expireWindow   time.Duration
}

// NewPaymentService 创建支付服务实例
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	paymentLogRepo repository.PaymentLogRepository,
	orderRepo repository.OrderRepository,
	queueClient *queue.Client,
	wechatCfg *wechatpay.Config,
	alipayCfg *alipay.Config,
	expireWindow time.Duration,
) *PaymentService {
	if expireWindow <= 0 {
		expireWindow = 15 * time.Minute
	}
	return &PaymentService{
		paymentRepo:    paymentRepo,
		paymentLogRepo: paymentLogRepo,
		orderRepo:      orderRepo,
		queueClient:    queueClient,
		wechatCfg:      wechatCfg,
		alipayCfg:      alipayCfg,
		expireWindow:   expireWindow,
	}
}

// CreatePaymentInput 创建支付单输入
type CreatePaymentInput struct {
	OrderID    uint
	UserID     uint
	Channel    string
	ClientType string
	ClientIP   string
}

// CreatePaymentResult 创建支付单返回
type CreatePaymentResult struct {
	Payment *models.Payment
	PayURL  string
	QRCode  string
}

// CreatePayment 为订单创建支付单并向渠道下单。
//
// 同一订单同时最多一张待支付单：新建前在同一把订单行锁内关闭旧的待支付单。
// 渠道下单发生在待支付单落库之后，渠道失败时支付单转关闭，不留悬挂记录。
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	channel := strings.ToLower(strings.TrimSpace(input.Channel))
	clientType := strings.ToLower(strings.TrimSpace(input.ClientType))
	if !isSupportedChannel(channel) {
		return nil, fmt.Errorf("%w: 不支持的支付渠道 %s", ErrPaymentInvalid, input.Channel)
	}
	if !isSupportedClientType(clientType) {
		return nil, fmt.Errorf("%w: 不支持的终端类型 %s", ErrPaymentInvalid, input.ClientType)
	}

	now := time.Now()
	payment := &models.Payment{
		PaymentNo:  generatePaymentNo(),
		OrderID:    input.OrderID,
		UserID:     input.UserID,
		Channel:    channel,
		ClientType: clientType,
		Status:     constants.PaymentStatusPending,
		ClientIP:   strings.TrimSpace(input.ClientIP),
		ExpireTime: now.Add(s.expireWindow),
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		order, err := orderRepo.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if input.UserID != 0 && order.BuyerID != input.UserID {
			return ErrOrderOwnerMismatch
		}
		if order.Status != constants.OrderStatusPendingPayment {
			return fmt.Errorf("%w: 当前状态 %s", ErrOrderStatusInvalid, order.Status)
		}
		if order.DepositAmount <= 0 {
			return fmt.Errorf("%w: 订金金额无效", ErrPaymentInvalid)
		}

		// 重复发起支付时旧的待支付单直接关闭，渠道侧支付入口随之失效。
		pendings, err := paymentRepo.ListPendingByOrderID(order.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentCreateFailed, err)
		}
		logRepo := s.logRepoTx(tx)
		for i := range pendings {
			stale := &pendings[i]
			stale.Status = constants.PaymentStatusClosed
			closedAt := now
			stale.ClosedAt = &closedAt
			if err := paymentRepo.Update(stale); err != nil {
				return fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
			}
			closeLog := &models.PaymentLog{
				PaymentID:   stale.ID,
				Action:      constants.PaymentLogActionClose,
				Status:      constants.PaymentStatusPending,
				NewStatus:   constants.PaymentStatusClosed,
				ClientIP:    payment.ClientIP,
				RequestData: redactPayload(map[string]interface{}{"reason": "重复发起支付"}),
			}
			if err := appendPaymentLogTx(logRepo, closeLog); err != nil {
				return fmt.Errorf("%w: %v", ErrPaymentCreateFailed, err)
			}
		}

		payment.Amount = order.DepositAmount
		payment.Currency = pickFirstNonEmptyString(order.Currency, constants.SiteCurrencyDefault)
		if err := paymentRepo.Create(payment); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentCreateFailed, err)
		}
		createLog := &models.PaymentLog{
			PaymentID: payment.ID,
			Action:    constants.PaymentLogActionCreate,
			NewStatus: payment.Status,
			ClientIP:  payment.ClientIP,
			RequestData: redactPayload(map[string]interface{}{
				"order_id":    payment.OrderID,
				"channel":     payment.Channel,
				"client_type": payment.ClientType,
				"amount":      payment.Amount,
			}),
		}
		if err := appendPaymentLogTx(logRepo, createLog); err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentCreateFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payURL, qrContent, err := s.createChannelPayment(ctx, payment)
	if err != nil {
		s.closeAfterChannelFailure(payment, err)
		return nil, err
	}

	payment.PayURL = payURL
	if qrContent != "" {
		dataURL, encodeErr := encodeQRCodePNG(qrContent)
		if encodeErr != nil {
			logger.SW().Warnw("payment_qrcode_encode_failed",
				"payment_no", payment.PaymentNo,
				"error", encodeErr,
			)
		} else {
			payment.QRCode = dataURL
		}
	}
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
	}

	s.schedulePaymentTasks(payment)

	logger.SW().Infow("payment_created",
		"payment_no", payment.PaymentNo,
		"order_id", payment.OrderID,
		"channel", payment.Channel,
		"client_type", payment.ClientType,
		"amount", payment.Amount,
	)
	return &CreatePaymentResult{
		Payment: payment,
		PayURL:  payment.PayURL,
		QRCode:  payment.QRCode,
	}, nil
}

// logRepoTx 返回绑定事务的流水仓库
func (s *PaymentService) logRepoTx(tx *gorm.DB) repository.PaymentLogRepository {
	if s.paymentLogRepo == nil {
		return nil
	}
	return s.paymentLogRepo.WithTx(tx)
}

// GetOrderStatus 查询关联订单当前状态，供状态查询接口随支付单一并返回
func (s *PaymentService) GetOrderStatus(orderID uint) (string, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	return order.Status, nil
}

// GetPaymentForUser 查询支付单并校验归属。归属不符按不存在处理，避免泄露他人单据。
func (s *PaymentService) GetPaymentForUser(paymentID uint, userID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if userID != 0 && payment.UserID != 0 && payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetPayment 按 ID 查询支付单
func (s *PaymentService) GetPayment(paymentID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 后台分页查询支付单
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

// ListPaymentLogs 查询支付单流水日志
func (s *PaymentService) ListPaymentLogs(paymentID uint) ([]models.PaymentLog, error) {
	return s.paymentLogRepo.ListByPaymentID(paymentID)
}

// closeAfterChannelFailure 渠道下单失败后关闭支付单
func (s *PaymentService) closeAfterChannelFailure(payment *models.Payment, cause error) {
	now := time.Now()
	payment.Status = constants.PaymentStatusClosed
	payment.ClosedAt = &now
	if err := s.paymentRepo.Update(payment); err != nil {
		logger.SW().Errorw("payment_close_after_failure_failed",
			"payment_no", payment.PaymentNo,
			"error", err,
		)
		return
	}
	appendPaymentLog(s.paymentLogRepo, &models.PaymentLog{
		PaymentID:    payment.ID,
		Action:       constants.PaymentLogActionClose,
		Status:       constants.PaymentStatusPending,
		NewStatus:    constants.PaymentStatusClosed,
		ResponseData: redactPayload(map[string]interface{}{"error": cause.Error()}),
	})
	logger.SW().Warnw("payment_closed_after_channel_failure",
		"payment_no", payment.PaymentNo,
		"channel", payment.Channel,
		"error", cause,
	)
}

// schedulePaymentTasks 注册到期关闭与中途对账任务
func (s *PaymentService) schedulePaymentTasks(payment *models.Payment) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	untilExpire := time.Until(payment.ExpireTime)
	if err := s.queueClient.EnqueuePaymentExpireClose(queue.PaymentExpireClosePayload{PaymentID: payment.ID}, untilExpire); err != nil {
		logger.SW().Warnw("payment_enqueue_expire_close_failed",
			"payment_no", payment.PaymentNo,
			"error", err,
		)
	}
	if err := s.queueClient.EnqueuePaymentAutoRequery(queue.PaymentAutoRequeryPayload{PaymentID: payment.ID}, untilExpire/2); err != nil {
		logger.SW().Warnw("payment_enqueue_auto_requery_failed",
			"payment_no", payment.PaymentNo,
			"error", err,
		)
	}
}

// createChannelPayment 按渠道下单，返回跳转地址与二维码内容
func (s *PaymentService) createChannelPayment(ctx context.Context, payment *models.Payment) (payURL string, qrContent string, err error) {
	switch payment.Channel {
	case constants.PaymentChannelWalletQR:
		result, createErr := wechatpay.CreatePayment(ctx, s.wechatCfg, wechatpay.CreateInput{
			PaymentNo:  payment.PaymentNo,
			Amount:     payment.Amount,
			ClientIP:   payment.ClientIP,
			ClientType: payment.ClientType,
		})
		if createErr != nil {
			return "", "", s.mapWechatError(createErr)
		}
		return result.PayURL, result.QRCode, nil
	case constants.PaymentChannelWebRedirect:
		result, createErr := alipay.CreatePayment(ctx, s.alipayCfg, alipay.CreateInput{
			PaymentNo:      payment.PaymentNo,
			Amount:         payment.Amount,
			ClientType:     payment.ClientType,
			TimeoutExpress: formatTimeoutExpress(s.expireWindow),
			PassbackParams: payment.PaymentNo,
		})
		if createErr != nil {
			return "", "", s.mapAlipayError(createErr)
		}
		return result.PayURL, "", nil
	default:
		return "", "", fmt.Errorf("%w: 不支持的支付渠道 %s", ErrPaymentInvalid, payment.Channel)
	}
}

func (s *PaymentService) mapWechatError(err error) error {
	switch {
	case errors.Is(err, wechatpay.ErrRequestFailed):
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRequestFailed, err)
	case errors.Is(err, wechatpay.ErrGatewayRejected):
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRejected, err)
	case errors.Is(err, wechatpay.ErrSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrPaymentSignatureInvalid, err)
	case errors.Is(err, wechatpay.ErrConfigInvalid), errors.Is(err, wechatpay.ErrResponseInvalid):
		return fmt.Errorf("%w: %v", ErrPaymentInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRequestFailed, err)
	}
}

func (s *PaymentService) mapAlipayError(err error) error {
	switch {
	case errors.Is(err, alipay.ErrRequestFailed):
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRequestFailed, err)
	case errors.Is(err, alipay.ErrGatewayRejected):
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRejected, err)
	case errors.Is(err, alipay.ErrSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrPaymentSignatureInvalid, err)
	case errors.Is(err, alipay.ErrConfigInvalid), errors.Is(err, alipay.ErrResponseInvalid), errors.Is(err, alipay.ErrSignGenerate):
		return fmt.Errorf("%w: %v", ErrPaymentInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrPaymentGatewayRequestFailed, err)
	}
}

func isSupportedChannel(channel string) bool {
	switch channel {
	case constants.PaymentChannelWalletQR, constants.PaymentChannelWebRedirect:
		return true
	default:
		return false
	}
}

func isSupportedClientType(clientType string) bool {
	switch clientType {
	case constants.PaymentClientH5, constants.PaymentClientPC, constants.PaymentClientApp:
		return true
	default:
		return false
	}
}

// generatePaymentNo 生成支付单号：P + 时间戳 + 9 位随机数字
func generatePaymentNo() string {
	return "P" + time.Now().Format("20060102150405") + randNumericCode(9)
}

func randNumericCode(length int) string {
	const digits = "0123456789"
	code := make([]byte, length)
	for i := range code {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			code[i] = '0'
			continue
		}
		code[i] = digits[index.Int64()]
	}
	return string(code)
}

func encodeQRCodePNG(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func formatTimeoutExpress(window time.Duration) string {
	minutes := int(window / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%dm", minutes)
}

func pickFirstNonEmptyString(values ...string) string {
	for _, val := range values {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

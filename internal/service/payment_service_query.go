package service

import (
	"context"
	"fmt"

	"github.com/youche-next/internal/constants"
	"github.com/youche-next/internal/logger"
	"github.com/youche-next/internal/models"
	"github.com/youche-next/internal/payment/alipay"
	"github.com/youche-next/internal/payment/wechatpay"
)

// channelQueryResult 渠道查询结果的归一化形式
type channelQueryResult struct {
	Status         string
	ChannelTradeNo string
	Amount         int64
	AmountKnown    bool
	Raw            interface{}
}

// QueryRemoteAndSync 主动向渠道查询支付单状态并同步本地。
//
// 渠道返回已支付且本地仍待支付时，走与异步回调相同的落账路径；
// 渠道返回已关闭且本地仍待支付时，本地关单。查询动作无论结果都会留痕。
func (s *PaymentService) QueryRemoteAndSync(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}

	remoteStatus, queryErr := s.queryChannelStatus(ctx, payment)
	logEntry := &models.PaymentLog{
		PaymentID: payment.ID,
		Action:    constants.PaymentLogActionQuery,
		Status:    payment.Status,
		NewStatus: payment.Status,
	}
	if queryErr != nil {
		logEntry.ResponseData = redactPayload(map[string]interface{}{"error": queryErr.Error()})
		appendPaymentLog(s.paymentLogRepo, logEntry)
		return nil, queryErr
	}
	logEntry.ResponseData = redactPayload(remoteStatus.Raw)

	switch remoteStatus.Status {
	case constants.PaymentStatusPaid:
		if payment.Status == constants.PaymentStatusPending {
			callbackInput := CallbackSuccessInput{
				PaymentNo:      payment.PaymentNo,
				ChannelTradeNo: remoteStatus.ChannelTradeNo,
				PaidAmount:     remoteStatus.Amount,
				AmountKnown:    remoteStatus.AmountKnown,
				RawPayload:     remoteStatus.Raw,
			}
			if err := s.HandleCallbackSuccess(callbackInput); err != nil {
				appendPaymentLog(s.paymentLogRepo, logEntry)
				return nil, err
			}
		}
	case constants.PaymentStatusClosed:
		if payment.Status == constants.PaymentStatusPending {
			if err := s.ClosePayment(payment.ID, "渠道侧已关闭"); err != nil {
				appendPaymentLog(s.paymentLogRepo, logEntry)
				return nil, err
			}
		}
	case constants.PaymentStatusPending, constants.PaymentStatusRefunded:
		// 待支付无需动作；退款状态以本地退款流程为准
	default:
		logger.SW().Warnw("payment_query_unknown_status",
			"payment_no", payment.PaymentNo,
			"remote_status", remoteStatus.Status,
		)
	}

	refreshed, err := s.GetPayment(payment.ID)
	if err != nil {
		return nil, err
	}
	logEntry.NewStatus = refreshed.Status
	appendPaymentLog(s.paymentLogRepo, logEntry)
	return refreshed, nil
}

func (s *PaymentService) queryChannelStatus(ctx context.Context, payment *models.Payment) (*channelQueryResult, error) {
	switch payment.Channel {
	case constants.PaymentChannelWalletQR:
		result, err := wechatpay.QueryOrderByPaymentNo(ctx, s.wechatCfg, payment.PaymentNo)
		if err != nil {
			return nil, s.mapWechatError(err)
		}
		return &channelQueryResult{
			Status:         result.Status,
			ChannelTradeNo: result.ChannelTradeNo,
			Amount:         result.Amount,
			AmountKnown:    result.Amount > 0,
			Raw:            result.Raw,
		}, nil
	case constants.PaymentChannelWebRedirect:
		result, err := alipay.QueryOrderByPaymentNo(ctx, s.alipayCfg, payment.PaymentNo)
		if err != nil {
			return nil, s.mapAlipayError(err)
		}
		return &channelQueryResult{
			Status:         result.Status,
			ChannelTradeNo: result.ChannelTradeNo,
			Amount:         result.Amount,
			AmountKnown:    result.Amount > 0,
			Raw:            result.Raw,
		}, nil
	default:
		return nil, fmt.Errorf("%w: 不支持的支付渠道 %s", ErrPaymentInvalid, payment.Channel)
	}
}

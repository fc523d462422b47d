package admin

import (
	"errors"

	"github.com/youche-next/internal/http/response"
	"github.com/youche-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var adminPaymentErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, key: "error.payment_invalid"},
	{target: service.ErrPaymentStateConflict, code: response.CodeBadRequest, key: "error.payment_state_conflict"},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeBadRequest, key: "error.payment_amount_mismatch"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeBadRequest, key: "error.payment_gateway_request_failed"},
	{target: service.ErrPaymentGatewayRejected, code: response.CodeBadRequest, key: "error.payment_gateway_rejected"},
}

var adminPaymentRefundErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrPaymentStateConflict, code: response.CodeBadRequest, key: "error.payment_state_conflict"},
	{target: service.ErrPaymentRefundAmountInvalid, code: response.CodeBadRequest, key: "error.payment_refund_amount_invalid"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeBadRequest, key: "error.payment_gateway_request_failed"},
	{target: service.ErrPaymentGatewayRejected, code: response.CodeBadRequest, key: "error.payment_gateway_rejected"},
}

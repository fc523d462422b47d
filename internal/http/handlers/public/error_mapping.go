package public

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

var paymentCreateErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentInvalid, code: response.CodeBadRequest, key: "error.payment_invalid"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderOwnerMismatch, code: response.CodeForbidden, key: "error.order_owner_mismatch"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, key: "error.order_status_invalid"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, key: "error.order_fetch_failed"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeBadRequest, key: "error.payment_gateway_request_failed"},
	{target: service.ErrPaymentGatewayRejected, code: response.CodeBadRequest, key: "error.payment_gateway_rejected"},
	{target: service.ErrPaymentCreateFailed, code: response.CodeInternal, key: "error.payment_create_failed"},
}

var paymentQueryErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderFetchFailed, code: response.CodeInternal, key: "error.order_fetch_failed"},
	{target: service.ErrPaymentStateConflict, code: response.CodeBadRequest, key: "error.payment_state_conflict"},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeBadRequest, key: "error.payment_amount_mismatch"},
	{target: service.ErrPaymentGatewayRequestFailed, code: response.CodeBadRequest, key: "error.payment_gateway_request_failed"},
	{target: service.ErrPaymentGatewayRejected, code: response.CodeBadRequest, key: "error.payment_gateway_rejected"},
}

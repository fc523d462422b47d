package shared

import (
	"github.com/youche-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 从上下文读取 uint 身份值并统一处理错误响应。
// 缺失视为未登录，负数或类型不符按各自的 key 报错。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v >= 0 {
			return uint(v), true
		}
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
	case float64:
		if v >= 0 {
			return uint(v), true
		}
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
	}
	return 0, false
}

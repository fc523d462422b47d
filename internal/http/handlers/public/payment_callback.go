package public

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func parseCallbackForm(c *gin.Context) (map[string][]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	if len(c.Request.PostForm) > 0 {
		return c.Request.PostForm, nil
	}
	return c.Request.Form, nil
}

func getFirstValue(form map[string][]string, key string) string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

func truncateCallbackLogValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if len(raw) <= callbackLogValueLimit {
		return raw
	}
	return raw[:callbackLogValueLimit] + "...(truncated)"
}

func callbackRawBodyForLog(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return truncateCallbackLogValue(string(body))
}

func callbackRawFormForLog(form map[string][]string) map[string]interface{} {
	result := make(map[string]interface{}, len(form))
	for key, values := range form {
		if len(values) == 0 {
			result[key] = ""
			continue
		}
		if len(values) == 1 {
			result[key] = truncateCallbackLogValue(values[0])
			continue
		}
		copied := make([]string, 0, len(values))
		for _, value := range values {
			copied = append(copied, truncateCallbackLogValue(value))
		}
		result[key] = copied
	}
	return result
}

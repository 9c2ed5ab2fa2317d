package logger

import "strings"

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldBackoff   = "backoff"
	FieldChannel   = "channel"
	FieldProducts  = "product_ids"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// redactedHeaders are request/response headers whose values must never
// be logged in plaintext.
var redactedHeaders = []string{
	"CB-ACCESS-KEY",
	"CB-ACCESS-SIGN",
	"Authorization",
}

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("request sent", logger.Fields("method", "GET", "path", p))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		"operation": op,
		FieldError:  err.Error(),
	}
}

// Redact masks credential material in a header map so request dumps can
// be logged safely. The input map is not modified.
func Redact(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
		for _, name := range redactedHeaders {
			if strings.EqualFold(k, name) {
				out[k] = Mask(v)
				break
			}
		}
	}
	return out
}

// Mask replaces all but the first four characters of a secret value.
func Mask(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

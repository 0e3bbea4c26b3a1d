package audit

import (
	"encoding/json"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// sensitiveKeys are matched case-insensitively as substrings, so
// "currentPassword" and "refresh_token" are caught too.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"apikey",
	"api_key",
}

// RedactBody replaces the values of credential-bearing fields in a JSON
// body at any nesting depth. Non-JSON bodies are dropped entirely rather
// than stored unredacted.
func RedactBody(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}

	redacted := redactValue(decoded)

	out, err := json.Marshal(redacted)
	if err != nil {
		return nil
	}
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if isSensitiveKey(k) {
				val[k] = redactedPlaceholder
				continue
			}
			val[k] = redactValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = redactValue(inner)
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

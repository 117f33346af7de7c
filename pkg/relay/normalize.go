package relay

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Normalize translates an upstream status and body into the Result and HTTP
// status returned to the caller. Any 2xx is a success answered with 200; a
// body that is not a JSON object falls back to its text. Any other status is
// a failure echoed with the upstream status.
func Normalize(status int, body []byte) (Result, int) {
	if status < 200 || status > 299 {
		return failure(MessageUpstreamFailed), status
	}

	result := Result{OK: true, Message: MessageReceived}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil || decoded == nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			result.Message = text
		}
		return result, http.StatusOK
	}

	if id := correlationID(decoded["correlationId"]); id != "" {
		result.CorrelationID = &id
	}
	if msg, ok := decoded["message"].(string); ok && msg != "" {
		result.Message = msg
	}
	return result, http.StatusOK
}

func correlationID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == 0 {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

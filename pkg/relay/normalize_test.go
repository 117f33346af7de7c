package relay

import (
	"net/http"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantOK      bool
		wantStatus  int
		wantRef     string
		wantMessage string
	}{
		{"correlation id echoed", 200, `{"correlationId":"abc123"}`, true, 200, "abc123", MessageReceived},
		{"upstream message kept", 200, `{"correlationId":"x","message":"Thanks!"}`, true, 200, "x", "Thanks!"},
		{"created maps to 200", 201, `{}`, true, 200, "", MessageReceived},
		{"numeric correlation id", 200, `{"correlationId":12345}`, true, 200, "12345", MessageReceived},
		{"plain text body", 200, `Workflow was started`, true, 200, "", "Workflow was started"},
		{"empty body", 204, ``, true, 200, "", MessageReceived},
		{"json array body", 200, `[1,2]`, true, 200, "", "[1,2]"},
		{"server error", 500, `{"correlationId":"abc"}`, false, 500, "", MessageUpstreamFailed},
		{"unauthorized", 401, `Unauthorized`, false, 401, "", MessageUpstreamFailed},
		{"not found", 404, ``, false, 404, "", MessageUpstreamFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, status := Normalize(tt.status, []byte(tt.body))
			if result.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", result.OK, tt.wantOK)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if result.Reference() != tt.wantRef {
				t.Errorf("Reference() = %q, want %q", result.Reference(), tt.wantRef)
			}
			if result.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", result.Message, tt.wantMessage)
			}
			if !tt.wantOK && result.CorrelationID != nil {
				t.Error("failed result must not carry a correlation id")
			}
		})
	}

	if _, status := Normalize(http.StatusBadGateway, nil); status != http.StatusBadGateway {
		t.Errorf("status = %d, want upstream status", status)
	}
}

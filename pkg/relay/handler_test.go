package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/fundingintake/pkg/uploads"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

func newTestHandler(t *testing.T, cfg Config) (*Handler, *httpmock.MockTransport) {
	t.Helper()
	f, transport := newMockForwarder(t, cfg)
	h := NewHandler(f,
		WithClock(func() time.Time { return fixedNow }),
		WithUploadConfig(uploads.DocumentConfig()),
	)
	return h, transport
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result), rec.Body.String())
	return result
}

func TestHandler_Preflight(t *testing.T) {
	h, _ := newTestHandler(t, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/intake-submission", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/intake-submission", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		result := decodeResult(t, rec)
		assert.False(t, result.OK)
		assert.Equal(t, MessageMethodNotAllowed, result.Message)
	}
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestHandler_ForwardsAndStampsSubmittedAt(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	var forwarded map[string]any
	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(body, &forwarded))
			return httpmock.NewStringResponse(200, `{"correlationId":"abc123"}`), nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/intake-submission",
		strings.NewReader(`{"first_name":"Jane","amount_requested":50000}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.True(t, result.OK)
	assert.Equal(t, "abc123", result.Reference())
	assert.Equal(t, MessageReceived, result.Message)

	assert.Equal(t, "Jane", forwarded["first_name"])
	assert.Equal(t, 50000.0, forwarded["amount_requested"])
	assert.Equal(t, "2026-03-04T05:06:07.008Z", forwarded[SubmittedAtField])
}

func TestHandler_KeepsClientSubmittedAt(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			assert.Contains(t, string(body), `"submitted_at":"2025-01-01T00:00:00.000Z"`)
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"submitted_at":"2025-01-01T00:00:00.000Z"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_UpstreamFailureEchoesStatus(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())
	transport.RegisterResponder(http.MethodPost, testWebhook,
		httpmock.NewStringResponder(503, `{"correlationId":"ignored"}`))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	result := decodeResult(t, rec)
	assert.False(t, result.OK)
	assert.Nil(t, result.CorrelationID)
	assert.Equal(t, MessageUpstreamFailed, result.Message)
}

func TestHandler_TransportFailureIs500(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())
	transport.RegisterResponder(http.MethodPost, testWebhook,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MessageInternalError, decodeResult(t, rec).Message)
}

func TestHandler_MissingCredentialsIsGeneric500(t *testing.T) {
	cfg := testConfig()
	cfg.Username, cfg.Password = "", ""
	h, transport := newTestHandler(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "credentials")
	assert.Equal(t, MessageInternalError, decodeResult(t, rec).Message)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestHandler_MalformedBody(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	for _, body := range []string{`not json`, `null`, `[1,2]`, ``} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, decodeResult(t, rec).OK)
	}
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestHandler_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	h, _ := newTestHandler(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"business_name":"a very long business name"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandler_MultipartPassthrough(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	var got Submission
	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			var err error
			got, err = DecodeRequest(req)
			require.NoError(t, err)
			return httpmock.NewStringResponse(200, `{"correlationId":"mp"}`), nil
		})

	body, contentType, err := Submission{
		Fields: map[string]any{"team_bios_filename": "bios.pdf"},
		Attachments: []Attachment{{
			Field: "team_bios", FileName: "bios.pdf", Data: []byte("%PDF-1.7\n%test\n"),
		}},
	}.Encode()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "team_bios", got.Attachments[0].Field)
	assert.Equal(t, "application/pdf", got.Attachments[0].ContentType)
	assert.Equal(t, "bios.pdf", got.Fields["team_bios_filename"])
	assert.NotEmpty(t, got.Fields[SubmittedAtField])
}

func TestHandler_RejectsDisallowedAttachment(t *testing.T) {
	h, transport := newTestHandler(t, testConfig())

	body, contentType, err := Submission{
		Fields: map[string]any{},
		Attachments: []Attachment{{
			Field: "one_pager", FileName: "script.sh", Data: []byte("#!/bin/sh\necho hi\n"),
		}},
	}.Encode()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, transport.GetTotalCallCount())
}

package relay

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/fundingintake/pkg/retry"
)

const testWebhook = "https://hooks.example.com/webhook/intake-submission"

func testConfig() Config {
	return Config{
		WebhookURL: testWebhook,
		Auth:       AuthBasic,
		Username:   "relay",
		Password:   "secret",
		Timeout:    time.Second,
	}
}

func newMockForwarder(t *testing.T, cfg Config) (*Forwarder, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	f := NewForwarder(cfg,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithRetryConfig(&retry.Config{MaxRetries: cfg.Retries, InitialDelay: time.Millisecond, Multiplier: 1}),
	)
	return f, transport
}

func TestForwarder_BasicAuthJSON(t *testing.T) {
	f, transport := newMockForwarder(t, testConfig())

	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			user, pass, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "relay", user)
			assert.Equal(t, "secret", pass)
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			body, _ := io.ReadAll(req.Body)
			assert.JSONEq(t, `{"first_name":"Jane","amount_requested":50000}`, string(body))
			return httpmock.NewJsonResponse(200, map[string]any{"correlationId": "abc123"})
		})

	status, body, err := f.Forward(context.Background(), Submission{
		Fields: map[string]any{"first_name": "Jane", "amount_requested": 50000},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"correlationId":"abc123"}`, string(body))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestForwarder_BearerAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = AuthBearer
	cfg.Token = "tok"
	f, transport := newMockForwarder(t, cfg)

	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(200, ""), nil
		})

	status, _, err := f.Forward(context.Background(), Submission{Fields: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, 200, status)
}

func TestForwarder_MultipartAttachments(t *testing.T) {
	f, transport := newMockForwarder(t, testConfig())

	transport.RegisterResponder(http.MethodPost, testWebhook,
		func(req *http.Request) (*http.Response, error) {
			mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			require.NoError(t, err)
			assert.Equal(t, "multipart/form-data", mediaType)

			mr := multipart.NewReader(req.Body, params["boundary"])
			payload, err := mr.NextPart()
			require.NoError(t, err)
			assert.Equal(t, PayloadPart, payload.FormName())
			data, _ := io.ReadAll(payload)
			assert.JSONEq(t, `{"one_pager_filename":"pager.pdf"}`, string(data))

			file, err := mr.NextPart()
			require.NoError(t, err)
			assert.Equal(t, "one_pager", file.FormName())
			assert.Equal(t, "pager.pdf", file.FileName())
			data, _ = io.ReadAll(file)
			assert.Equal(t, "%PDF-1.4", string(data))
			return httpmock.NewStringResponse(200, `{"correlationId":"m1"}`), nil
		})

	status, _, err := f.Forward(context.Background(), Submission{
		Fields: map[string]any{"one_pager_filename": "pager.pdf"},
		Attachments: []Attachment{{
			Field: "one_pager", FileName: "pager.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, status)
}

func TestForwarder_RetriesTransportErrorsOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Retries = 2

	t.Run("transport error retried", func(t *testing.T) {
		f, transport := newMockForwarder(t, cfg)
		calls := 0
		transport.RegisterResponder(http.MethodPost, testWebhook,
			func(req *http.Request) (*http.Response, error) {
				calls++
				if calls < 3 {
					return nil, errors.New("connection reset")
				}
				return httpmock.NewStringResponse(200, `{}`), nil
			})

		status, _, err := f.Forward(context.Background(), Submission{Fields: map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, 200, status)
		assert.Equal(t, 3, calls)
	})

	t.Run("upstream error not retried", func(t *testing.T) {
		f, transport := newMockForwarder(t, cfg)
		transport.RegisterResponder(http.MethodPost, testWebhook,
			httpmock.NewStringResponder(500, "boom"))

		status, _, err := f.Forward(context.Background(), Submission{Fields: map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, 500, status)
		assert.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("exhausted", func(t *testing.T) {
		f, transport := newMockForwarder(t, cfg)
		transport.RegisterResponder(http.MethodPost, testWebhook,
			httpmock.NewErrorResponder(errors.New("dial tcp: refused")))

		_, _, err := f.Forward(context.Background(), Submission{Fields: map[string]any{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
		assert.Equal(t, 3, transport.GetTotalCallCount())
	})
}

func TestForwarder_MissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""
	f, transport := newMockForwarder(t, cfg)

	_, _, err := f.Forward(context.Background(), Submission{Fields: map[string]any{}})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestForwarder_Submit(t *testing.T) {
	f, transport := newMockForwarder(t, testConfig())
	transport.RegisterResponder(http.MethodPost, testWebhook,
		httpmock.NewStringResponder(200, `{"correlationId":"abc123"}`))

	result, err := f.Submit(context.Background(), Submission{Fields: map[string]any{}})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "abc123", result.Reference())

	transport.RegisterResponder(http.MethodPost, testWebhook,
		httpmock.NewStringResponder(502, `bad gateway`))
	result, err = f.Submit(context.Background(), Submission{Fields: map[string]any{}})
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.False(t, result.OK)
	assert.True(t, strings.Contains(err.Error(), "502"))
}

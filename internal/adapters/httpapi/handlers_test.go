package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/config"
	"github.com/mailsift/phishing-detector/internal/core"
	"github.com/mailsift/phishing-detector/internal/scoring"
)

type fakeService struct {
	scanResult    core.ClassifiedEmail
	scanErr       error
	scanSubject   string
	scanBody      string
	scanSender    string
	scanSource    string
	feedbackID    string
	feedbackValue bool
	feedbackOK    bool
	feedbackErr   error
}

func (f *fakeService) Scan(ctx context.Context, subject, body, sender, source string) (core.ClassifiedEmail, error) {
	f.scanSubject = subject
	f.scanBody = body
	f.scanSender = sender
	f.scanSource = source
	return f.scanResult, f.scanErr
}

func (f *fakeService) Feedback(ctx context.Context, recordID string, isPhishing bool) (bool, error) {
	f.feedbackID = recordID
	f.feedbackValue = isPhishing
	return f.feedbackOK, f.feedbackErr
}

func newTestServer(svc Service) *Server {
	cfg := config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		DefaultSource:   "gmail_addon",
		MaxSubjectChars: 300,
		MaxBodyChars:    50000,
		MaxSenderChars:  320,
	}
	return NewServer(svc, zap.NewNop(), cfg)
}

func doJSON(t *testing.T, handler http.Handler, method, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeService{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestPredict_ReturnsClassification(t *testing.T) {
	svc := &fakeService{
		scanResult: core.ClassifiedEmail{
			RecordID: "abc-123",
			Prediction: scoring.PredictionResult{
				Label:      "Phishing",
				FinalScore: 0.91,
				MLScore:    0.95,
				RuleScore:  0.8,
				Confidence: "HIGH",
				Reasoning:  "Sender domain does not match links in email",
			},
			Audit: core.AuditInfo{
				AlreadySeen: true,
				LabelSource: "model",
				ScanCount:   3,
				FirstSeenAt: "2026-08-01T10:00:00Z",
				LastSeenAt:  "2026-08-29T09:30:00Z",
			},
		},
	}
	srv := newTestServer(svc)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/predict",
		`{"subject": "Verify your account", "body": "Click here now", "sender": "support@paypa1.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "abc-123", body["id"])
	assert.Equal(t, "Phishing", body["label"])
	assert.Equal(t, 0.91, body["final_score"])
	assert.Equal(t, "HIGH", body["confidence"])
	assert.Equal(t, true, body["already_seen"])
	assert.Equal(t, false, body["already_labeled"])
	assert.Equal(t, float64(3), body["scan_count"])

	assert.Equal(t, "gmail_addon", svc.scanSource)
	assert.Equal(t, "Verify your account", svc.scanSubject)
}

func TestPredict_EmptySubjectAndBody(t *testing.T) {
	srv := newTestServer(&fakeService{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/predict",
		`{"subject": "   ", "body": "", "sender": "someone@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "subject/body cannot both be empty", decodeBody(t, rec)["detail"])
}

func TestPredict_InvalidJSON(t *testing.T) {
	srv := newTestServer(&fakeService{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/predict", `{"subject": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredict_TruncatesOversizedFields(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(svc)

	payload, err := json.Marshal(predictRequest{
		Subject: strings.Repeat("s", 400),
		Body:    "short body",
		Sender:  strings.Repeat("x", 400) + "@example.com",
	})
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/predict", string(payload))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.scanSubject, 300)
	assert.Len(t, svc.scanSender, 320)
	assert.Equal(t, "short body", svc.scanBody)
}

func TestPredict_ScanError(t *testing.T) {
	srv := newTestServer(&fakeService{scanErr: errors.New("disk gone")})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/predict",
		`{"subject": "Hello", "body": "World", "sender": "a@example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeedback_OK(t *testing.T) {
	svc := &fakeService{feedbackOK: true}
	srv := newTestServer(svc)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/feedback",
		`{"id": "abc-123", "is_phishing": true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Feedback received", decodeBody(t, rec)["message"])
	assert.Equal(t, "abc-123", svc.feedbackID)
	assert.True(t, svc.feedbackValue)
}

func TestFeedback_MissingID(t *testing.T) {
	srv := newTestServer(&fakeService{feedbackOK: true})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/feedback", `{"is_phishing": true}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing id", decodeBody(t, rec)["detail"])
}

func TestFeedback_UnknownID(t *testing.T) {
	srv := newTestServer(&fakeService{feedbackOK: false})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/feedback",
		`{"id": "missing", "is_phishing": false}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Email ID not found", decodeBody(t, rec)["detail"])
}

func TestFeedback_InvalidBool(t *testing.T) {
	srv := newTestServer(&fakeService{feedbackOK: true})

	for _, payload := range []string{
		`{"id": "abc", "is_phishing": "maybe"}`,
		`{"id": "abc", "is_phishing": 2}`,
		`{"id": "abc"}`,
	} {
		rec := doJSON(t, srv.Router(), http.MethodPost, "/feedback", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %s", payload)
	}
}

func TestParseBoolStrict(t *testing.T) {
	tests := []struct {
		raw   string
		value bool
		ok    bool
	}{
		{`true`, true, true},
		{`false`, false, true},
		{`1`, true, true},
		{`0`, false, true},
		{`"yes"`, true, true},
		{`"No"`, false, true},
		{`" TRUE "`, true, true},
		{`2`, false, false},
		{`"maybe"`, false, false},
		{`null`, false, false},
		{`[]`, false, false},
	}

	for _, tt := range tests {
		value, ok := parseBoolStrict(json.RawMessage(tt.raw))
		assert.Equal(t, tt.ok, ok, "raw %s", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.value, value, "raw %s", tt.raw)
		}
	}
}

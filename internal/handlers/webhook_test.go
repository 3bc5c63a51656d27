package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptolock-hq/chatbot-backend/internal/config"
	"github.com/cryptolock-hq/chatbot-backend/internal/models"
	"github.com/cryptolock-hq/chatbot-backend/internal/services"
	"github.com/cryptolock-hq/chatbot-backend/internal/storage"
)

type stubConversation struct {
	reply string
	err   error
	seen  []string
}

func (s *stubConversation) SendMessage(ctx context.Context, text string) (string, error) {
	s.seen = append(s.seen, text)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubFactory struct {
	conv    *stubConversation
	err     error
	created int
}

func (s *stubFactory) NewChatSession(ctx context.Context, userID, systemInstruction string) (services.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created++
	return s.conv, nil
}

type stubSender struct {
	sent   []string
	to     []string
	err    error
	status string
}

func (s *stubSender) SendWhatsAppMessage(to string, body string, mediaURLs []string) (*models.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, body)
	s.to = append(s.to, to)
	return &models.SendResult{
		Success:    true,
		MessageSid: "SMout1",
		Status:     "queued",
		From:       "whatsapp:+14155238886",
		To:         services.NormalizeWhatsAppAddress(to),
	}, nil
}

func (s *stubSender) GetMessageStatus(messageSid string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.status, nil
}

func testConfig() *config.Config {
	return &config.Config{
		VerifyToken:          "secret-token",
		GeminiAPIKey:         "test-key",
		GeminiModel:          "gemini-2.5-flash",
		TwilioAccountSID:     "AC123",
		TwilioAuthToken:      "auth-token",
		TwilioWhatsAppNumber: "+14155238886",
		Port:                 "8080",
	}
}

func newTestApp(h *WebhookHandler) *fiber.App {
	app := fiber.New()
	app.Get("/webhook", h.Verify)
	app.Post("/webhook", h.Receive)
	return app
}

func postForm(t *testing.T, app *fiber.App, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestVerifyWithMatchingTokenEchoesChallenge(t *testing.T) {
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{}), nil, nil)
	app := newTestApp(h)

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.verify_token=secret-token&hub.challenge=xyz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "xyz" {
		t.Errorf("body = %q, want %q", body, "xyz")
	}
}

func TestVerifyWithMatchingTokenNoChallenge(t *testing.T) {
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{}), nil, nil)
	app := newTestApp(h)

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.verify_token=secret-token", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestVerifyWithMismatchedTokenDenied(t *testing.T) {
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{}), nil, nil)
	app := newTestApp(h)

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.verify_token=wrong&hub.challenge=xyz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %v, want 403", resp.StatusCode)
	}
}

// twilioSign reproduces Twilio's request signature: base64 HMAC-SHA1 over
// the URL followed by the sorted, concatenated form parameters.
func twilioSign(authToken, fullURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}

	data := fullURL
	for _, k := range keys {
		data += k + params[k]
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWithValidSignature(t *testing.T) {
	cfg := testConfig()
	h := NewWebhookHandler(cfg, services.NewSessionManager(&stubFactory{}), nil, nil)
	app := newTestApp(h)

	target := "/webhook?hub.mode=subscribe"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("X-Twilio-Signature", twilioSign(cfg.TwilioAuthToken, "http://example.com"+target, nil))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestVerifyWithForgedSignatureDenied(t *testing.T) {
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{}), nil, nil)
	app := newTestApp(h)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	req.Header.Set("X-Twilio-Signature", "bm90LWEtcmVhbC1zaWduYXR1cmU=")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %v, want 403: signature presence alone must not pass", resp.StatusCode)
	}
}

func TestReceiveTextMessageRepliesViaAI(t *testing.T) {
	conv := &stubConversation{reply: "Hello! How can I help?"}
	factory := &stubFactory{conv: conv}
	sender := &stubSender{}
	store := storage.NewMemoryStore()
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(factory), sender, store)
	app := newTestApp(h)

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("To", "whatsapp:+14155238886")
	form.Set("Body", "hello")
	form.Set("NumMedia", "0")

	resp := postForm(t, app, form)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status field = %v, want success", body["status"])
	}

	if len(conv.seen) != 1 || conv.seen[0] != "hello" {
		t.Errorf("AI received %v, want [hello]", conv.seen)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "Hello! How can I help?" {
		t.Errorf("sender sent %v, want the AI reply", sender.sent)
	}
	if len(sender.to) != 1 || sender.to[0] != "+15551234567" {
		t.Errorf("reply destination = %v, want +15551234567", sender.to)
	}

	inbound, _ := store.CountMessages(models.DirectionInbound)
	outbound, _ := store.CountMessages(models.DirectionOutbound)
	if inbound != 1 || outbound != 1 {
		t.Errorf("audit log counts = %d in / %d out, want 1/1", inbound, outbound)
	}
}

func TestReceiveIgnoredDeliveryCreatesNoSession(t *testing.T) {
	factory := &stubFactory{conv: &stubConversation{reply: "x"}}
	sender := &stubSender{}
	sessions := services.NewSessionManager(factory)
	h := NewWebhookHandler(testConfig(), sessions, sender, storage.NewMemoryStore())
	app := newTestApp(h)

	form := url.Values{}
	form.Set("From", "whatsapp:+15551234567")
	// MessageSid deliberately absent

	resp := postForm(t, app, form)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status field = %v, want success ack for ignored event", body["status"])
	}

	if factory.created != 0 {
		t.Errorf("created %d sessions for ignored delivery, want 0", factory.created)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages for ignored delivery, want 0", len(sender.sent))
	}
	if sessions.Count() != 0 {
		t.Errorf("registry has %d sessions, want 0", sessions.Count())
	}
}

func TestReceiveAIFailureSendsApology(t *testing.T) {
	conv := &stubConversation{err: errors.New("model overloaded")}
	sender := &stubSender{}
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{conv: conv}), sender, nil)
	app := newTestApp(h)

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("Body", "hello")
	form.Set("NumMedia", "0")

	resp := postForm(t, app, form)
	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status field = %v, want success (apology path still sends)", body["status"])
	}

	if len(sender.sent) != 1 || sender.sent[0] != apologyReply {
		t.Errorf("sender sent %v, want the apology text", sender.sent)
	}
}

func TestReceiveSendFailureReportedAs200Error(t *testing.T) {
	sender := &stubSender{err: &services.MessageError{Code: 21211, Message: "invalid number"}}
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{conv: &stubConversation{reply: "hi"}}), sender, nil)
	app := newTestApp(h)

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("Body", "hello")

	resp := postForm(t, app, form)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want 200 even on send failure", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["status"] != "error" {
		t.Errorf("status field = %v, want error", body["status"])
	}
}

func TestReceiveWithoutSenderReportsWarning(t *testing.T) {
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(&stubFactory{conv: &stubConversation{reply: "hi"}}), nil, nil)
	app := newTestApp(h)

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("Body", "hello")

	resp := postForm(t, app, form)
	body := decodeBody(t, resp)
	if body["status"] != "warning" {
		t.Errorf("status field = %v, want warning when Twilio is unavailable", body["status"])
	}
}

func TestReceiveMediaMessageAcknowledgedWithoutAI(t *testing.T) {
	factory := &stubFactory{conv: &stubConversation{reply: "x"}}
	sender := &stubSender{}
	h := NewWebhookHandler(testConfig(), services.NewSessionManager(factory), sender, nil)
	app := newTestApp(h)

	form := url.Values{}
	form.Set("MessageSid", "SM2")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("NumMedia", "2")
	form.Set("MediaUrl0", "http://a")
	form.Set("MediaUrl1", "http://b")

	resp := postForm(t, app, form)
	body := decodeBody(t, resp)
	if body["status"] != "success" {
		t.Errorf("status field = %v, want success", body["status"])
	}

	if factory.created != 0 {
		t.Errorf("media message created %d sessions, want 0", factory.created)
	}
	if len(sender.sent) != 0 {
		t.Errorf("media message triggered %d sends, want 0", len(sender.sent))
	}
}

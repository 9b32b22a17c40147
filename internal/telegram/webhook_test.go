package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/walkingday-ai/walkbot/internal/bot"
	"github.com/walkingday-ai/walkbot/internal/middleware"
	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/pkg/logger"
)

type fakeHandler struct {
	calls int
	last  model.Event
	reply model.Reply
}

func (f *fakeHandler) HandleEvent(ctx context.Context, ev model.Event) model.Reply {
	f.calls++
	f.last = ev
	return f.reply
}

type fakeSender struct {
	sent        []model.Reply
	sendErr     error
	photoData   []byte
	photoErr    error
	lastFileID  string
	sendReplies int
}

func (f *fakeSender) SendReply(ctx context.Context, reply model.Reply) error {
	f.sendReplies++
	f.sent = append(f.sent, reply)
	return f.sendErr
}

func (f *fakeSender) DownloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	f.lastFileID = fileID
	if f.photoErr != nil {
		return nil, "", f.photoErr
	}
	return f.photoData, "image/jpeg", nil
}

func post(t *testing.T, wh *Webhook, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "expected", logger.NewNop())

	rec := post(t, wh, `{"update_id":1}`, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if handler.calls != 0 {
		t.Error("handler must not run on bad secret")
	}
}

func TestWebhookMapsCommand(t *testing.T) {
	handler := &fakeHandler{reply: model.Reply{UserID: 7, Text: "hi"}}
	sender := &fakeSender{}
	wh := NewWebhook(handler, sender, "", logger.NewNop())

	body := `{"update_id":1,"message":{"message_id":10,"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"/start"}}`
	rec := post(t, wh, body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if handler.last.Kind != model.EventCommand || handler.last.Command != "start" {
		t.Errorf("unexpected event %+v", handler.last)
	}
	if handler.last.UserID != 7 {
		t.Errorf("unexpected user %d", handler.last.UserID)
	}
	if sender.sendReplies != 1 || sender.sent[0].Text != "hi" {
		t.Errorf("reply not sent: %+v", sender.sent)
	}
}

func TestWebhookStripsBotNameSuffix(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"/walk@walkbot"}}`
	post(t, wh, body, "")

	if handler.last.Command != "walk" {
		t.Errorf("expected command walk, got %q", handler.last.Command)
	}
}

func TestWebhookMapsMenuButton(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"` + bot.ButtonWalk + `"}}`
	post(t, wh, body, "")

	if handler.last.Kind != model.EventButtonPress {
		t.Errorf("expected button press, got %q", handler.last.Kind)
	}
	if handler.last.Text != bot.ButtonWalk {
		t.Errorf("unexpected text %q", handler.last.Text)
	}
}

func TestWebhookMapsPlainText(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"Atlanta"}}`
	post(t, wh, body, "")

	if handler.last.Kind != model.EventText || handler.last.Text != "Atlanta" {
		t.Errorf("unexpected event %+v", handler.last)
	}
}

func TestWebhookMapsLargestPhoto(t *testing.T) {
	handler := &fakeHandler{}
	sender := &fakeSender{photoData: []byte{0xFF, 0xD8, 0xFF}}
	wh := NewWebhook(handler, sender, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"caption":"my dog","photo":[{"file_id":"small","width":90,"height":90},{"file_id":"big","width":800,"height":800}]}}`
	post(t, wh, body, "")

	if sender.lastFileID != "big" {
		t.Errorf("expected largest rendition, got %q", sender.lastFileID)
	}
	if handler.last.Kind != model.EventImage {
		t.Fatalf("expected image event, got %q", handler.last.Kind)
	}
	if handler.last.Caption != "my dog" {
		t.Errorf("caption not mapped: %q", handler.last.Caption)
	}
	if handler.last.Image == nil || len(handler.last.Image.Data) != 3 {
		t.Errorf("image bytes not mapped: %+v", handler.last.Image)
	}
}

func TestWebhookDropsUpdateOnPhotoDownloadFailure(t *testing.T) {
	handler := &fakeHandler{}
	sender := &fakeSender{photoErr: errors.New("boom")}
	wh := NewWebhook(handler, sender, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"photo":[{"file_id":"x","width":1,"height":1}]}}`
	rec := post(t, wh, body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack, got %d", rec.Code)
	}
	if handler.calls != 0 {
		t.Error("handler must not run when the photo cannot be fetched")
	}
}

func TestWebhookAcksMalformedPayload(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "", logger.NewNop())

	rec := post(t, wh, `{"update_id":`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack for malformed body, got %d", rec.Code)
	}
	if handler.calls != 0 {
		t.Error("handler must not run on malformed payload")
	}
}

func TestSendFailureLogsUpdateContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	handler := &fakeHandler{reply: model.Reply{UserID: 7, Text: "hi"}}
	sender := &fakeSender{sendErr: errors.New("chat not found")}
	wh := NewWebhook(handler, sender, "", log)

	body := `{"update_id":1,"message":{"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"/start"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.CorrelationIDKey, "corr-123"))
	wh.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("sending reply failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["correlation_id"] != "corr-123" {
		t.Errorf("correlation id not carried: %v", fields["correlation_id"])
	}
	if fields["user_id"] != int64(7) {
		t.Errorf("user id not carried: %v", fields["user_id"])
	}
}

func TestWebhookDropsBotSenders(t *testing.T) {
	handler := &fakeHandler{}
	wh := NewWebhook(handler, &fakeSender{}, "", logger.NewNop())

	body := `{"update_id":1,"message":{"from":{"id":7,"is_bot":true},"chat":{"id":7,"type":"private"},"text":"hi"}}`
	post(t, wh, body, "")

	if handler.calls != 0 {
		t.Error("messages from bots must be dropped")
	}
}

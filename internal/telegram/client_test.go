package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/walkingday-ai/walkbot/internal/model"
)

func TestSendReplyRendersKeyboard(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok123/sendMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient("tok123", srv.URL)
	err := client.SendReply(context.Background(), model.Reply{
		UserID: 42,
		Text:   "pick one",
		Keyboard: &model.Keyboard{
			Rows:   [][]string{{"A", "B"}, {"C"}},
			Resize: true,
		},
	})
	if err != nil {
		t.Fatalf("SendReply: %v", err)
	}

	if got.ChatID != 42 || got.Text != "pick one" {
		t.Errorf("message not mapped: %+v", got)
	}
	if got.ReplyMarkup == nil {
		t.Fatal("keyboard not rendered")
	}
	if len(got.ReplyMarkup.Keyboard) != 2 || got.ReplyMarkup.Keyboard[0][1].Text != "B" {
		t.Errorf("unexpected keyboard layout: %+v", got.ReplyMarkup.Keyboard)
	}
	if !got.ReplyMarkup.ResizeKeyboard {
		t.Error("resize flag not carried over")
	}
}

func TestSendReplyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	client := NewClient("tok123", srv.URL)
	err := client.SendReply(context.Background(), model.Reply{UserID: 42, Text: "hi"})
	if err == nil {
		t.Fatal("expected error on ok=false response")
	}
}

func TestDownloadPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottok123/getFile":
			w.Write([]byte(`{"ok":true,"result":{"file_id":"abc","file_path":"photos/file_1.jpg"}}`))
		case "/file/bottok123/photos/file_1.jpg":
			w.Write([]byte{0xFF, 0xD8, 0xFF})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient("tok123", srv.URL)
	data, mimeType, err := client.DownloadPhoto(context.Background(), "abc")
	if err != nil {
		t.Fatalf("DownloadPhoto: %v", err)
	}
	if len(data) != 3 {
		t.Errorf("unexpected payload length %d", len(data))
	}
	if mimeType != "image/jpeg" {
		t.Errorf("unexpected mime type %q", mimeType)
	}
}

func TestDownloadPhotoMissingPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"file_id":"abc"}}`))
	}))
	defer srv.Close()

	client := NewClient("tok123", srv.URL)
	if _, _, err := client.DownloadPhoto(context.Background(), "abc"); err == nil {
		t.Fatal("expected error when file path is absent")
	}
}

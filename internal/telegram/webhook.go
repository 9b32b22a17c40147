package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/bot"
	"github.com/walkingday-ai/walkbot/internal/middleware"
	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/pkg/logger"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// EventHandler runs one inbound event and produces the reply.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev model.Event) model.Reply
}

// Sender delivers replies and resolves photo uploads.
type Sender interface {
	SendReply(ctx context.Context, reply model.Reply) error
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, string, error)
}

// Webhook is the HTTP handler Telegram posts updates to.
type Webhook struct {
	handler EventHandler
	sender  Sender
	secret  string
	logger  *logger.Logger
}

// NewWebhook creates the webhook handler. secret is matched against the
// secret-token header on every request when non-empty.
func NewWebhook(handler EventHandler, sender Sender, secret string, log *logger.Logger) *Webhook {
	return &Webhook{handler: handler, sender: sender, secret: secret, logger: log}
}

// ServeHTTP decodes the update, runs it through the controller, and sends the
// reply. Telegram retries on non-2xx, so malformed updates are acknowledged
// with 200 to keep them from being redelivered forever.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" && r.Header.Get(secretTokenHeader) != w.secret {
		w.logger.Warn("webhook request with bad secret token")
		rw.WriteHeader(http.StatusUnauthorized)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		w.logger.Warn("malformed update payload", zap.Error(err))
		rw.WriteHeader(http.StatusOK)
		return
	}

	ev, ok := w.mapUpdate(r.Context(), &update)
	if !ok {
		rw.WriteHeader(http.StatusOK)
		return
	}

	log := w.updateLogger(r.Context(), ev.UserID)

	reply := w.handler.HandleEvent(r.Context(), ev)
	if err := w.sender.SendReply(r.Context(), reply); err != nil {
		log.Error("sending reply failed", zap.Error(err))
	}

	rw.WriteHeader(http.StatusOK)
}

// mapUpdate classifies one update into a controller event. Updates the bot
// does not handle (edits, channel posts, messages with no sender) are
// dropped.
func (w *Webhook) mapUpdate(ctx context.Context, update *Update) (model.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return model.Event{}, false
	}
	userID := model.UserID(msg.From.ID)

	if len(msg.Photo) > 0 {
		// The last rendition is the largest.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		data, mimeType, err := w.sender.DownloadPhoto(ctx, fileID)
		if err != nil {
			w.updateLogger(ctx, userID).Warn("photo download failed",
				zap.String("file_id", fileID),
				zap.Error(err))
			return model.Event{}, false
		}
		return model.Event{
			UserID:  userID,
			Kind:    model.EventImage,
			Caption: msg.Caption,
			Image:   &model.ImageAttachment{Data: data, MIMEType: mimeType},
		}, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return model.Event{}, false
	}

	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text[1:], " ")
		// Strip the @botname suffix of commands sent in groups.
		command, _, _ = strings.Cut(command, "@")
		return model.Event{UserID: userID, Kind: model.EventCommand, Command: command}, true
	}

	if isMenuButton(text) {
		return model.Event{UserID: userID, Kind: model.EventButtonPress, Text: text}, true
	}

	return model.Event{UserID: userID, Kind: model.EventText, Text: msg.Text}, true
}

// updateLogger is the per-update child logger, carrying the request's
// correlation ID and the sending user.
func (w *Webhook) updateLogger(ctx context.Context, userID model.UserID) *logger.Logger {
	return w.logger.WithUpdate(middleware.GetCorrelationID(ctx), int64(userID))
}

func isMenuButton(text string) bool {
	for _, label := range bot.MenuButtons {
		if text == label {
			return true
		}
	}
	return false
}

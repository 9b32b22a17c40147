// Package telegram adapts the Bot API to the controller's event and reply
// model: inbound webhook updates become events, replies become sendMessage
// calls.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

const maxImageBytes = 10 << 20

// Client talks to the Telegram Bot API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a Bot API client. baseURL defaults to the public API.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// SendReply delivers a reply to the user, rendering the keyboard when one is
// attached.
func (c *Client) SendReply(ctx context.Context, reply model.Reply) error {
	req := sendMessageRequest{
		ChatID: int64(reply.UserID),
		Text:   reply.Text,
	}
	if reply.Keyboard != nil {
		req.ReplyMarkup = renderKeyboard(reply.Keyboard)
	}

	_, err := c.call(ctx, "sendMessage", &req)
	return err
}

// DownloadPhoto resolves a file ID to its download path and fetches the
// bytes. Telegram serves photos as JPEG.
func (c *Client) DownloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	raw, err := c.call(ctx, "getFile", map[string]string{"file_id": fileID})
	if err != nil {
		return nil, "", err
	}

	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, "", fmt.Errorf("decoding getFile result: %w", err)
	}
	if file.FilePath == "" {
		return nil, "", fmt.Errorf("file %s has no download path", fileID)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, file.FilePath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading file body: %w", err)
	}
	return data, "image/jpeg", nil
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordProviderRequest("telegram", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		metrics.RecordProviderRequest("telegram", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !apiResp.OK {
		metrics.RecordProviderRequest("telegram", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%s failed: %s", method, apiResp.Description)
	}

	metrics.RecordProviderRequest("telegram", "success", time.Since(start).Seconds())
	return apiResp.Result, nil
}

func renderKeyboard(kb *model.Keyboard) *replyKeyboardMarkup {
	markup := &replyKeyboardMarkup{
		ResizeKeyboard:  kb.Resize,
		OneTimeKeyboard: kb.OneTimeKeyboard,
	}
	for _, row := range kb.Rows {
		buttons := make([]keyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, keyboardButton{Text: label})
		}
		markup.Keyboard = append(markup.Keyboard, buttons)
	}
	return markup
}

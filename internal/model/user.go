// Package model defines data structures for the bot platform.
package model

import (
	"time"
)

// UserID identifies a chat participant. It is the key for all per-user state.
type UserID int64

// ConversationState marks what kind of input the bot expects next from a user.
type ConversationState string

const (
	// StateIdle is the default state; absence of a state entry means Idle.
	StateIdle ConversationState = "idle"

	// StateAwaitingLocation means the next text message is a city name.
	StateAwaitingLocation ConversationState = "awaiting_location"

	// StateAwaitingFreeText means the next text message is a free-form
	// question passed verbatim to the language model.
	StateAwaitingFreeText ConversationState = "awaiting_free_text"

	// StateAwaitingStockSymbol means the next text message is a ticker symbol.
	StateAwaitingStockSymbol ConversationState = "awaiting_stock_symbol"

	// StateAwaitingImage means the next message should carry an image plus caption.
	StateAwaitingImage ConversationState = "awaiting_image"

	// StateAwaitingSummaryText means the next text message is a document to summarize.
	StateAwaitingSummaryText ConversationState = "awaiting_summary_text"
)

// UserProfile holds per-user accumulated preferences. Fields are set once a
// lookup succeeds and overwritten on subsequent successful lookups.
type UserProfile struct {
	LocationID  string `json:"location_id,omitempty"`
	City        string `json:"city,omitempty"`
	StockSymbol string `json:"stock_symbol,omitempty"`
}

// RequestQuota is a per-user request counter over a rolling window.
type RequestQuota struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Allow applies the lazy window reset and, if the request fits under the
// limit, records it. It returns false when the caller is over quota; in that
// case the quota is left untouched.
func (q *RequestQuota) Allow(now time.Time, limit int, window time.Duration) bool {
	if q.WindowStart.IsZero() || now.Sub(q.WindowStart) > window {
		q.Count = 0
		q.WindowStart = now
	}
	if q.Count >= limit {
		return false
	}
	q.Count++
	return true
}

// Package state provides the per-user conversation state store.
package state

import (
	"context"

	"github.com/walkingday-ai/walkbot/internal/model"
)

// Store holds all per-user conversational state: the expected-next-input
// marker, accumulated preferences, and the walk request quota.
//
// Implementations must make each per-user read-modify-write atomic so that
// two near-simultaneous events for the same user cannot lose updates. No
// cross-user locking is required.
type Store interface {
	// State returns the user's conversation state, StateIdle if absent.
	State(ctx context.Context, userID model.UserID) (model.ConversationState, error)

	// SetState records the user's conversation state.
	SetState(ctx context.Context, userID model.UserID, s model.ConversationState) error

	// Profile returns the user's profile, empty if absent.
	Profile(ctx context.Context, userID model.UserID) (model.UserProfile, error)

	// UpdateProfile applies fn to the user's profile under the user's lock.
	UpdateProfile(ctx context.Context, userID model.UserID, fn func(*model.UserProfile)) error

	// Quota returns the user's request quota, fresh if absent.
	Quota(ctx context.Context, userID model.UserID) (model.RequestQuota, error)

	// UpdateQuota applies fn to the user's quota under the user's lock.
	// Check-and-increment must happen inside fn to stay atomic.
	UpdateQuota(ctx context.Context, userID model.UserID, fn func(*model.RequestQuota)) error
}

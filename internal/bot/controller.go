// Package bot implements the conversation controller, the state machine that
// turns inbound user events into state transitions and replies.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/finance"
	"github.com/walkingday-ai/walkbot/internal/llm"
	"github.com/walkingday-ai/walkbot/internal/model"
	"github.com/walkingday-ai/walkbot/internal/prompt"
	"github.com/walkingday-ai/walkbot/internal/state"
	"github.com/walkingday-ai/walkbot/pkg/logger"
	"github.com/walkingday-ai/walkbot/pkg/metrics"
)

// WeatherProvider resolves cities and fetches hourly forecasts.
type WeatherProvider interface {
	ResolveLocation(ctx context.Context, city string) (model.Location, error)
	Forecast(ctx context.Context, locationID string) ([]model.WeatherSample, error)
}

// FinanceProvider fetches daily stock series.
type FinanceProvider interface {
	DailySeries(ctx context.Context, symbol string) (model.StockSnapshot, error)
}

// Publisher records audit events. Implementations must be fire-and-forget; a
// publish failure never affects the user-facing reply.
type Publisher interface {
	Publish(ctx context.Context, event *model.AuditEvent)
}

// NopPublisher discards audit events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *model.AuditEvent) {}

// QuotaConfig bounds how often a user may run the walk flow.
type QuotaConfig struct {
	Limit  int
	Window time.Duration
}

// Deps carries the controller's collaborators.
type Deps struct {
	Store      state.Store
	Weather    WeatherProvider
	Finance    FinanceProvider
	Text       llm.Client
	Vision     llm.VisionClient
	Summarizer llm.Summarizer
	Publisher  Publisher
	Quota      QuotaConfig
	Logger     *logger.Logger

	// Model overrides the provider's default model when set.
	Model string

	// Now is the clock used for quota windows; defaults to time.Now.
	Now func() time.Time
}

// Controller is the per-user conversation state machine. It owns no state of
// its own; everything per-user lives in the Store.
type Controller struct {
	store      state.Store
	weather    WeatherProvider
	finance    FinanceProvider
	text       llm.Client
	vision     llm.VisionClient
	summarizer llm.Summarizer
	publisher  Publisher
	quota      QuotaConfig
	logger     *logger.Logger
	model      string
	now        func() time.Time
}

// New creates a controller.
func New(deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = NopPublisher{}
	}
	if deps.Quota.Limit == 0 {
		deps.Quota.Limit = 3
	}
	if deps.Quota.Window == 0 {
		deps.Quota.Window = 24 * time.Hour
	}
	return &Controller{
		store:      deps.Store,
		weather:    deps.Weather,
		finance:    deps.Finance,
		text:       deps.Text,
		vision:     deps.Vision,
		summarizer: deps.Summarizer,
		publisher:  deps.Publisher,
		quota:      deps.Quota,
		logger:     deps.Logger,
		model:      deps.Model,
		now:        deps.Now,
	}
}

// HandleEvent runs one inbound event through the state machine and returns
// the reply to deliver. Every failure degrades to a user-visible message; the
// user is always left in a well-defined state.
func (c *Controller) HandleEvent(ctx context.Context, ev model.Event) model.Reply {
	metrics.UpdatesTotal.WithLabelValues(string(ev.Kind)).Inc()
	c.audit(ctx, ev.UserID, model.AuditEventUpdate, string(ev.Kind), "")

	switch ev.Kind {
	case model.EventCommand:
		return c.handleCommand(ctx, ev)
	case model.EventButtonPress:
		return c.handleButton(ctx, ev)
	case model.EventText:
		return c.handleText(ctx, ev)
	case model.EventImage:
		return c.handleImage(ctx, ev)
	default:
		return c.guidance(ev.UserID)
	}
}

func (c *Controller) handleCommand(ctx context.Context, ev model.Event) model.Reply {
	switch ev.Command {
	case "start":
		// /start always returns to the menu, whatever state the user was in.
		if err := c.store.SetState(ctx, ev.UserID, model.StateIdle); err != nil {
			return c.storeFailure(ev.UserID, err)
		}
		return model.Reply{UserID: ev.UserID, Text: welcomeText, Keyboard: menuKeyboard()}
	case "walk":
		return c.walkFlow(ctx, ev.UserID)
	default:
		return c.guidance(ev.UserID)
	}
}

func (c *Controller) handleButton(ctx context.Context, ev model.Event) model.Reply {
	st, err := c.store.State(ctx, ev.UserID)
	if err != nil {
		return c.storeFailure(ev.UserID, err)
	}
	if st != model.StateIdle {
		// Buttons drive transitions out of Idle only; anywhere else the
		// press does not match the expected input.
		return c.guidance(ev.UserID)
	}

	switch strings.TrimSpace(ev.Text) {
	case ButtonWalk:
		return c.transition(ctx, ev.UserID, model.StateAwaitingLocation, askLocationText)
	case ButtonQuestion:
		return c.transition(ctx, ev.UserID, model.StateAwaitingFreeText, askQuestionText)
	case ButtonStock:
		return c.transition(ctx, ev.UserID, model.StateAwaitingStockSymbol, askSymbolText)
	case ButtonImage:
		return c.transition(ctx, ev.UserID, model.StateAwaitingImage, askImageText)
	case ButtonSummarize:
		return c.transition(ctx, ev.UserID, model.StateAwaitingSummaryText, askSummaryText)
	case ButtonAbout:
		return model.Reply{UserID: ev.UserID, Text: aboutText}
	default:
		return c.guidance(ev.UserID)
	}
}

func (c *Controller) handleText(ctx context.Context, ev model.Event) model.Reply {
	st, err := c.store.State(ctx, ev.UserID)
	if err != nil {
		return c.storeFailure(ev.UserID, err)
	}

	switch st {
	case model.StateAwaitingLocation:
		return c.locationInput(ctx, ev.UserID, strings.TrimSpace(ev.Text))
	case model.StateAwaitingFreeText:
		return c.freeTextInput(ctx, ev.UserID, ev.Text)
	case model.StateAwaitingStockSymbol:
		return c.symbolInput(ctx, ev.UserID, strings.TrimSpace(ev.Text))
	case model.StateAwaitingSummaryText:
		return c.summaryInput(ctx, ev.UserID, ev.Text)
	default:
		// Idle, or a state expecting a different input type.
		return c.guidance(ev.UserID)
	}
}

func (c *Controller) handleImage(ctx context.Context, ev model.Event) model.Reply {
	st, err := c.store.State(ctx, ev.UserID)
	if err != nil {
		return c.storeFailure(ev.UserID, err)
	}
	if st != model.StateAwaitingImage || ev.Image == nil {
		return c.guidance(ev.UserID)
	}

	// Outcome does not matter for the transition: the image was consumed.
	if err := c.store.SetState(ctx, ev.UserID, model.StateIdle); err != nil {
		return c.storeFailure(ev.UserID, err)
	}

	if c.vision == nil {
		return c.flowReply(ev.UserID, "image", "unsupported", modelUnavailableText)
	}

	resp, err := c.vision.CompleteVision(ctx, &llm.VisionRequest{
		Model:    c.model,
		Prompt:   ev.Caption,
		Image:    ev.Image.Data,
		MIMEType: ev.Image.MIMEType,
	})
	if err != nil {
		c.providerFailure(ctx, ev.UserID, "image", err)
		return c.flowReply(ev.UserID, "image", "failure", modelUnavailableText)
	}

	return c.flowReply(ev.UserID, "image", "success", resp.Content)
}

func (c *Controller) locationInput(ctx context.Context, userID model.UserID, city string) model.Reply {
	loc, err := c.weather.ResolveLocation(ctx, city)
	if err != nil {
		// NotFound and provider failures alike keep the user in
		// AwaitingLocation so they can retry.
		c.providerFailure(ctx, userID, "walk", err)
		return c.flowReply(userID, "walk", "location_retry", locationRetryText)
	}

	if err := c.store.UpdateProfile(ctx, userID, func(p *model.UserProfile) {
		p.LocationID = loc.ID
		p.City = loc.Name
	}); err != nil {
		return c.storeFailure(userID, err)
	}
	if err := c.store.SetState(ctx, userID, model.StateIdle); err != nil {
		return c.storeFailure(userID, err)
	}

	return c.walkFlow(ctx, userID)
}

// walkFlow runs the quota check, the forecast fetch, and the LLM call. It is
// triggered by the /walk command or by completing location setup.
func (c *Controller) walkFlow(ctx context.Context, userID model.UserID) model.Reply {
	var allowed bool
	err := c.store.UpdateQuota(ctx, userID, func(q *model.RequestQuota) {
		allowed = q.Allow(c.now(), c.quota.Limit, c.quota.Window)
	})
	if err != nil {
		return c.storeFailure(userID, err)
	}
	if !allowed {
		metrics.QuotaRejectionsTotal.Inc()
		c.audit(ctx, userID, model.AuditEventQuotaRejected, "walk", "")
		return c.flowReply(userID, "walk", "quota_exceeded", quotaExceededText)
	}

	profile, err := c.store.Profile(ctx, userID)
	if err != nil {
		return c.storeFailure(userID, err)
	}
	if profile.LocationID == "" {
		if err := c.store.SetState(ctx, userID, model.StateAwaitingLocation); err != nil {
			return c.storeFailure(userID, err)
		}
		return c.flowReply(userID, "walk", "location_required", locationRequiredText)
	}

	samples, err := c.weather.Forecast(ctx, profile.LocationID)
	if err != nil {
		c.providerFailure(ctx, userID, "walk", err)
		return c.flowReply(userID, "walk", "weather_failure", weatherUnavailableText)
	}

	return c.complete(ctx, userID, "walk", prompt.Weather(samples))
}

func (c *Controller) freeTextInput(ctx context.Context, userID model.UserID, text string) model.Reply {
	// Back to Idle regardless of the outcome.
	if err := c.store.SetState(ctx, userID, model.StateIdle); err != nil {
		return c.storeFailure(userID, err)
	}
	return c.complete(ctx, userID, "question", text)
}

func (c *Controller) symbolInput(ctx context.Context, userID model.UserID, symbol string) model.Reply {
	symbol = strings.ToUpper(symbol)

	if err := c.store.UpdateProfile(ctx, userID, func(p *model.UserProfile) {
		p.StockSymbol = symbol
	}); err != nil {
		return c.storeFailure(userID, err)
	}
	if err := c.store.SetState(ctx, userID, model.StateIdle); err != nil {
		return c.storeFailure(userID, err)
	}

	return c.financeFlow(ctx, userID, symbol)
}

func (c *Controller) financeFlow(ctx context.Context, userID model.UserID, symbol string) model.Reply {
	snapshot, err := c.finance.DailySeries(ctx, symbol)
	if err != nil {
		c.providerFailure(ctx, userID, "stock", err)
		if isNotFound(err) {
			return c.flowReply(userID, "stock", "symbol_retry", symbolRetryText)
		}
		return c.flowReply(userID, "stock", "finance_failure", stockUnavailableText)
	}

	p, err := prompt.StockFull(snapshot)
	if err != nil {
		c.logger.Warn("stock prompt build failed", zap.Error(err))
		return c.flowReply(userID, "stock", "prompt_failure", stockUnavailableText)
	}

	return c.complete(ctx, userID, "stock", p)
}

func (c *Controller) summaryInput(ctx context.Context, userID model.UserID, text string) model.Reply {
	if err := c.store.SetState(ctx, userID, model.StateIdle); err != nil {
		return c.storeFailure(userID, err)
	}

	summary, err := c.summarizer.Summarize(ctx, text)
	if err != nil {
		c.providerFailure(ctx, userID, "summary", err)
		return c.flowReply(userID, "summary", "failure", summaryFailedText)
	}
	return c.flowReply(userID, "summary", "success", summary)
}

// complete runs a built prompt through the text LLM and wraps the answer.
func (c *Controller) complete(ctx context.Context, userID model.UserID, flow, prompt string) model.Reply {
	resp, err := c.text.Complete(ctx, &llm.CompletionRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		c.providerFailure(ctx, userID, flow, err)
		return c.flowReply(userID, flow, "llm_failure", modelUnavailableText)
	}
	return c.flowReply(userID, flow, "success", resp.Content)
}

func (c *Controller) transition(ctx context.Context, userID model.UserID, st model.ConversationState, text string) model.Reply {
	if err := c.store.SetState(ctx, userID, st); err != nil {
		return c.storeFailure(userID, err)
	}
	return model.Reply{UserID: userID, Text: text}
}

func (c *Controller) guidance(userID model.UserID) model.Reply {
	return c.flowReply(userID, "menu", "guidance", useMenuText)
}

func (c *Controller) flowReply(userID model.UserID, flow, status, text string) model.Reply {
	metrics.RepliesTotal.WithLabelValues(flow, status).Inc()
	return model.Reply{UserID: userID, Text: text}
}

func (c *Controller) storeFailure(userID model.UserID, err error) model.Reply {
	c.logger.Error("state store failure", zap.Error(err))
	return c.flowReply(userID, "store", "failure", internalErrorText)
}

func (c *Controller) providerFailure(ctx context.Context, userID model.UserID, flow string, err error) {
	c.logger.Warn("provider call failed",
		zap.String("flow", flow),
		zap.Error(err))
	c.audit(ctx, userID, model.AuditEventProviderFailure, flow, err.Error())
}

func (c *Controller) audit(ctx context.Context, userID model.UserID, typ model.AuditEventType, flow, detail string) {
	c.publisher.Publish(ctx, &model.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Type:      typ,
		Flow:      flow,
		Detail:    detail,
		CreatedAt: c.now(),
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, finance.ErrSymbolNotFound)
}

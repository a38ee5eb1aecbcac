package bot

import (
	"context"
	"errors"
	"strings"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/models/dtos"
	"infinite-experiment/keydrop/internal/services"

	"go.uber.org/zap"
)

// Messenger is the part of the Bot API the dispatcher replies through
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *dtos.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Dependencies holds everything the dispatcher routes updates into
type Dependencies struct {
	Messenger     Messenger
	Users         *services.UserService
	Verification  *services.VerificationService
	Engine        *services.AllocationService
	Admin         *services.AdminService
	Notifications *services.NotificationService
	Sessions      *services.AdminSessionStore
	Metrics       *metrics.MetricsRegistry
	AdminID       int64
}

// Dispatcher turns inbound chat updates into service calls and replies.
// Updates are handled one at a time by the poller.
type Dispatcher struct {
	Dependencies
}

func NewDispatcher(deps Dependencies) *Dispatcher {
	return &Dispatcher{Dependencies: deps}
}

// Handle processes one update. Errors are reported to the sender where
// possible; the returned error is only for logging by the caller.
func (d *Dispatcher) Handle(ctx context.Context, update dtos.Update) error {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		d.count("callback")
		log := logging.WithUpdate(update.UpdateID, cb.From.ID, "callback")
		return d.handleCallback(ctx, log, cb)

	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		d.count("message")
		log := logging.WithUpdate(update.UpdateID, msg.From.ID, "message")
		return d.handleMessage(ctx, log, msg)

	default:
		d.count("ignored")
		return nil
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, log *zap.SugaredLogger, msg *dtos.Message) error {
	from := msg.From
	text := strings.TrimSpace(msg.Text)
	command, args := splitCommand(text)

	switch command {
	case "/start":
		return d.handleStart(ctx, from)
	case "/admin":
		if !d.isAdmin(from.ID) {
			return d.reply(ctx, from.ID, constants.MsgAccessDenied)
		}
		d.Sessions.Reset(from.ID)
		return d.showAdminPanel(ctx, from.ID)
	case "/cancel":
		if d.isAdmin(from.ID) {
			return d.cancelAdmin(ctx, from.ID)
		}
		return nil
	case "/history":
		if !d.isAdmin(from.ID) {
			return d.reply(ctx, from.ID, constants.MsgAccessDenied)
		}
		return d.showUserHistory(ctx, from.ID, args)
	}

	if d.isAdmin(from.ID) {
		session := d.Sessions.Get(from.ID)
		if session.Awaiting() {
			return d.handleAdminInput(ctx, log, session, text)
		}
	}

	log.Debugw("Ignoring free text", "text_len", len(text))
	return nil
}

func (d *Dispatcher) handleCallback(ctx context.Context, log *zap.SugaredLogger, cb *dtos.CallbackQuery) error {
	// Stops the client's spinner; failures here are cosmetic
	if err := d.Messenger.AnswerCallback(ctx, cb.ID, ""); err != nil {
		log.Debugw("Failed to answer callback", "error", err)
	}

	switch cb.Data {
	case callbackVerify:
		return d.handleVerify(ctx, &cb.From)
	case callbackClaim:
		return d.handleClaim(ctx, log, &cb.From)
	}

	if !strings.HasPrefix(cb.Data, adminCallbackPrefix) && cb.Data != callbackConfirm && cb.Data != callbackCancel {
		log.Warnw("Unknown callback", "data", cb.Data)
		return nil
	}
	if !d.isAdmin(cb.From.ID) {
		return d.reply(ctx, cb.From.ID, constants.MsgAccessDenied)
	}
	return d.handleAdminCallback(ctx, log, cb.From.ID, cb.Data)
}

func (d *Dispatcher) isAdmin(userID int64) bool {
	return userID == d.AdminID
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) error {
	return d.Messenger.SendMessage(ctx, chatID, text, nil)
}

func (d *Dispatcher) replyWithMarkup(ctx context.Context, chatID int64, text string, markup *dtos.InlineKeyboardMarkup) error {
	return d.Messenger.SendMessage(ctx, chatID, text, markup)
}

// replyError tells the sender what went wrong. Input problems are shown
// verbatim; anything else is logged and replaced by a generic message.
func (d *Dispatcher) replyError(ctx context.Context, chatID int64, err error) error {
	if isUserFacing(err) {
		return d.reply(ctx, chatID, "❌ "+err.Error())
	}
	logging.Error("Update handling failed", "chat_id", chatID, "error", err)
	if sendErr := d.reply(ctx, chatID, constants.MsgInternalError); sendErr != nil {
		return sendErr
	}
	return err
}

func (d *Dispatcher) count(kind string) {
	if d.Metrics != nil {
		d.Metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}

func isUserFacing(err error) bool {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	var conflict *services.ConflictError
	return errors.As(err, &validation) || errors.As(err, &notFound) || errors.As(err, &conflict)
}

// splitCommand separates "/cmd@botname args" into "/cmd" and "args"
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	command, args, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")
	return strings.ToLower(command), strings.TrimSpace(args)
}

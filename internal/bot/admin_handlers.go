package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/entities"
	"infinite-experiment/keydrop/internal/services"

	"go.uber.org/zap"
)

// inputStates maps panel buttons to the free-text input they ask for
var inputStates = map[string]services.SessionState{
	callbackAdminAddKeys:       services.StateAwaitingKeys,
	callbackAdminAddChannel:    services.StateAwaitingChannel,
	callbackAdminRemoveChannel: services.StateAwaitingRemoveChannel,
	callbackAdminSetCooldown:   services.StateAwaitingCooldown,
	callbackAdminSetKeyMessage: services.StateAwaitingKeyMessage,
	callbackAdminBlock:         services.StateAwaitingBlock,
	callbackAdminUnblock:       services.StateAwaitingUnblock,
	callbackAdminResetCooldown: services.StateAwaitingResetCooldown,
	callbackAdminBroadcast:     services.StateAwaitingBroadcast,
}

var inputPrompts = map[services.SessionState]string{
	services.StateAwaitingKeys:          constants.MsgAdminAddKeysPrompt,
	services.StateAwaitingChannel:       constants.MsgAdminChannelPrompt,
	services.StateAwaitingRemoveChannel: constants.MsgAdminRemovePrompt,
	services.StateAwaitingKeyMessage:    constants.MsgAdminKeyMsgPrompt,
	services.StateAwaitingBlock:         constants.MsgAdminBlockPrompt,
	services.StateAwaitingUnblock:       constants.MsgAdminUnblockPrompt,
	services.StateAwaitingResetCooldown: constants.MsgAdminResetPrompt,
	services.StateAwaitingBroadcast:     constants.MsgAdminBroadcastPrompt,
}

func (d *Dispatcher) showAdminPanel(ctx context.Context, adminID int64) error {
	return d.replyWithMarkup(ctx, adminID, constants.MsgAdminPanel, adminPanelKeyboard())
}

func (d *Dispatcher) handleAdminCallback(ctx context.Context, log *zap.SugaredLogger, adminID int64, data string) error {
	if next, ok := inputStates[data]; ok {
		return d.beginInput(ctx, adminID, next)
	}

	switch data {
	case callbackAdminBack:
		d.discardPending(adminID)
		d.Sessions.Reset(adminID)
		return d.showAdminPanel(ctx, adminID)
	case callbackAdminStats:
		return d.showStats(ctx, adminID)
	case callbackAdminListChannels:
		return d.showChannels(ctx, adminID)
	case callbackAdminUsers:
		return d.showUsers(ctx, adminID)
	case callbackAdminWaitlist:
		return d.showWaitlist(ctx, adminID)
	case callbackAdminLeftUsers:
		return d.showLeftUsers(ctx, adminID)
	case callbackAdminResetAll:
		return d.propose(ctx, adminID, services.ActionResetAllCooldowns)
	case callbackAdminDeleteKeys:
		return d.propose(ctx, adminID, services.ActionDeleteAllKeys)
	case callbackConfirm:
		return d.confirm(ctx, log, adminID)
	case callbackCancel:
		return d.cancelAdmin(ctx, adminID)
	}

	log.Warnw("Unknown admin callback", "data", data)
	return nil
}

func (d *Dispatcher) beginInput(ctx context.Context, adminID int64, next services.SessionState) error {
	if _, err := d.Sessions.Begin(adminID, next); err != nil {
		return d.replyError(ctx, adminID, err)
	}

	prompt := inputPrompts[next]
	if next == services.StateAwaitingCooldown {
		settings, err := d.Admin.Settings(ctx)
		if err != nil {
			return d.replyError(ctx, adminID, err)
		}
		prompt = fmt.Sprintf(constants.MsgAdminCooldownPrompt, settings.CooldownHours)
	}
	return d.replyWithMarkup(ctx, adminID, prompt, backKeyboard())
}

// handleAdminInput applies the text to the pending input state. Invalid
// input keeps the state so the admin can retry.
func (d *Dispatcher) handleAdminInput(ctx context.Context, log *zap.SugaredLogger, session *services.AdminSession, text string) error {
	adminID := session.AdminID

	reply, err := d.applyAdminInput(ctx, log, session.State, text)
	if err != nil {
		var invalid *services.ValidationError
		if !errors.As(err, &invalid) {
			d.Sessions.Reset(adminID)
		}
		return d.replyError(ctx, adminID, err)
	}

	d.Sessions.Reset(adminID)
	return d.replyWithMarkup(ctx, adminID, reply, backKeyboard())
}

func (d *Dispatcher) applyAdminInput(ctx context.Context, log *zap.SugaredLogger, state services.SessionState, text string) (string, error) {
	switch state {
	case services.StateAwaitingKeys:
		result, err := d.Admin.AddKeys(ctx, text)
		if err != nil {
			return "", err
		}
		if len(result.Assignments) > 0 {
			sent, failed := d.Notifications.DeliverAssignments(ctx, result.Assignments)
			log.Infow("Delivered waitlist assignments", "sent", sent, "failed", failed)
		}
		return formatAddKeys(result), nil

	case services.StateAwaitingChannel:
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return "", &services.ValidationError{Field: "channel", Reason: "expected @handle [link]"}
		}
		link := ""
		if len(fields) > 1 {
			link = fields[1]
		}
		channel, err := d.Admin.AddChannel(ctx, fields[0], link)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Channel %s added.", channel.Mention()), nil

	case services.StateAwaitingRemoveChannel:
		if err := d.Admin.RemoveChannel(ctx, text); err != nil {
			return "", err
		}
		return "✅ Channel removed.", nil

	case services.StateAwaitingCooldown:
		hours, err := services.ParseCooldownHours(text)
		if err != nil {
			return "", err
		}
		if err := d.Admin.SetCooldownHours(ctx, hours); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Cooldown set to %d hours.", hours), nil

	case services.StateAwaitingKeyMessage:
		if err := d.Admin.SetKeyMessageTemplate(ctx, text); err != nil {
			return "", err
		}
		return "✅ Key message updated.", nil

	case services.StateAwaitingBlock:
		userID, reason, err := services.ParseBlockInput(text)
		if err != nil {
			return "", err
		}
		if err := d.Admin.BlockUser(ctx, userID, reason); err != nil {
			return "", err
		}
		return fmt.Sprintf("⛔ User %d blocked.", userID), nil

	case services.StateAwaitingUnblock:
		userID, err := services.ParseUserID(text)
		if err != nil {
			return "", err
		}
		if err := d.Admin.UnblockUser(ctx, userID); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ User %d unblocked.", userID), nil

	case services.StateAwaitingResetCooldown:
		userID, err := services.ParseUserID(text)
		if err != nil {
			return "", err
		}
		if err := d.Admin.ResetCooldown(ctx, userID); err != nil {
			return "", err
		}
		return fmt.Sprintf("♻️ Cooldown reset for user %d.", userID), nil

	case services.StateAwaitingBroadcast:
		body, imageURL := services.ParseBroadcastInput(text)
		report, err := d.Admin.Broadcast(ctx, body, imageURL)
		if err != nil {
			return "", err
		}
		if report.Queued {
			return fmt.Sprintf("📣 Broadcast %s queued.", report.ID), nil
		}
		return fmt.Sprintf("📣 Broadcast sent to %d of %d users (%d failed).", report.Sent, report.Recipients, report.Failed), nil
	}

	return "", fmt.Errorf("no input handler for state %s", state)
}

func (d *Dispatcher) propose(ctx context.Context, adminID int64, action services.ConfirmAction) error {
	d.discardPending(adminID)

	proposal, err := d.Admin.Propose(adminID, action)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	if _, err := d.Sessions.BeginConfirmation(adminID, action, proposal.Token); err != nil {
		return d.replyError(ctx, adminID, err)
	}

	prompt := constants.MsgAdminConfirmReset
	if action == services.ActionDeleteAllKeys {
		prompt = constants.MsgAdminConfirmDelete
	}
	return d.replyWithMarkup(ctx, adminID, prompt, confirmKeyboard())
}

func (d *Dispatcher) confirm(ctx context.Context, log *zap.SugaredLogger, adminID int64) error {
	session := d.Sessions.Get(adminID)
	if !session.Confirming() {
		return d.reply(ctx, adminID, "Nothing to confirm.")
	}
	d.Sessions.Reset(adminID)

	result, err := d.Admin.Confirm(ctx, adminID, session.ConfirmToken)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}

	log.Infow("Admin action confirmed", "action", result.Action, "affected", result.Affected)
	text := fmt.Sprintf("✅ Cooldowns reset for %d users.", result.Affected)
	if result.Action == services.ActionDeleteAllKeys {
		text = fmt.Sprintf("✅ Deleted %d keys.", result.Affected)
	}
	return d.replyWithMarkup(ctx, adminID, text, backKeyboard())
}

func (d *Dispatcher) cancelAdmin(ctx context.Context, adminID int64) error {
	d.discardPending(adminID)
	d.Sessions.Reset(adminID)
	return d.replyWithMarkup(ctx, adminID, constants.MsgAdminCancelled, backKeyboard())
}

// discardPending burns an outstanding confirmation token, if any
func (d *Dispatcher) discardPending(adminID int64) {
	session := d.Sessions.Get(adminID)
	if !session.Confirming() || session.ConfirmToken == "" {
		return
	}
	if err := d.Admin.Cancel(session.ConfirmToken); err != nil {
		// Expired or already used tokens need no cleanup
		logging.Debug("Discarding confirmation failed", "admin_id", adminID, "error", err)
	}
}

func (d *Dispatcher) showStats(ctx context.Context, adminID int64) error {
	stats, err := d.Admin.Stats(ctx)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	return d.replyWithMarkup(ctx, adminID, formatStats(stats), backKeyboard())
}

func (d *Dispatcher) showChannels(ctx context.Context, adminID int64) error {
	channels, err := d.Admin.ListChannels(ctx)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	text := "📋 No channels configured. Users are verified automatically."
	if len(channels) > 0 {
		text = "📋 Required channels:\n\n" + channelList(channels)
	}
	return d.replyWithMarkup(ctx, adminID, text, backKeyboard())
}

func (d *Dispatcher) showUsers(ctx context.Context, adminID int64) error {
	rows, err := d.Admin.ListUsers(ctx, entities.Page{})
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	return d.replyWithMarkup(ctx, adminID, formatUsers(rows), backKeyboard())
}

func (d *Dispatcher) showWaitlist(ctx context.Context, adminID int64) error {
	rows, err := d.Admin.ListWaitlist(ctx, entities.Page{})
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	return d.replyWithMarkup(ctx, adminID, formatWaitlist(rows), backKeyboard())
}

func (d *Dispatcher) showLeftUsers(ctx context.Context, adminID int64) error {
	rows, err := d.Admin.ListLeftUsers(ctx, entities.Page{})
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	return d.replyWithMarkup(ctx, adminID, formatLeftUsers(rows), backKeyboard())
}

func (d *Dispatcher) showUserHistory(ctx context.Context, adminID int64, args string) error {
	userID, err := services.ParseUserID(args)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	history, err := d.Admin.UserHistory(ctx, userID)
	if err != nil {
		return d.replyError(ctx, adminID, err)
	}
	return d.replyWithMarkup(ctx, adminID, formatUserHistory(history), backKeyboard())
}

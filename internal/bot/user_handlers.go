package bot

import (
	"context"
	"fmt"
	"strings"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/models/dtos"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"
	"infinite-experiment/keydrop/internal/services"

	"go.uber.org/zap"
)

func (d *Dispatcher) handleStart(ctx context.Context, from *dtos.TelegramUser) error {
	if _, err := d.Users.Touch(ctx, from.ID, from.Username); err != nil {
		return d.replyError(ctx, from.ID, err)
	}

	channels, err := d.Admin.ListChannels(ctx)
	if err != nil {
		return d.replyError(ctx, from.ID, err)
	}
	if err := d.replyWithMarkup(ctx, from.ID, constants.MsgWelcome, welcomeKeyboard(channels)); err != nil {
		return err
	}

	if d.isAdmin(from.ID) {
		return d.showAdminPanel(ctx, from.ID)
	}
	return nil
}

func (d *Dispatcher) handleVerify(ctx context.Context, from *dtos.TelegramUser) error {
	user, err := d.Users.Touch(ctx, from.ID, from.Username)
	if err != nil {
		return d.replyError(ctx, from.ID, err)
	}

	result, err := d.Verification.Verify(ctx, user)
	if err != nil {
		return d.replyError(ctx, from.ID, err)
	}

	switch {
	case result.NoChannels:
		return d.reply(ctx, from.ID, constants.MsgVerifiedNoChannels)
	case result.Verified:
		return d.reply(ctx, from.ID, constants.MsgVerifySuccess)
	case len(result.Missing) > 0:
		return d.reply(ctx, from.ID, fmt.Sprintf(constants.MsgVerifyMissing, channelList(result.Missing)))
	default:
		return d.reply(ctx, from.ID, fmt.Sprintf(constants.MsgVerifyUnknown, channelList(result.Unknown)))
	}
}

func (d *Dispatcher) handleClaim(ctx context.Context, log *zap.SugaredLogger, from *dtos.TelegramUser) error {
	user, err := d.Users.Touch(ctx, from.ID, from.Username)
	if err != nil {
		return d.replyError(ctx, from.ID, err)
	}

	result, err := d.Engine.Claim(ctx, from.ID)
	if err != nil {
		return d.replyError(ctx, from.ID, err)
	}

	switch result.Outcome {
	case services.ClaimAssigned:
		text, err := d.Notifications.KeyMessage(ctx, result.Receipt)
		if err != nil {
			// The key is bound already; the raw token still reaches the user
			log.Errorw("Failed to render key message", "sale_id", result.Receipt.SaleID, "error", err)
			text = "🔑 " + result.Receipt.Key
		}
		return d.reply(ctx, from.ID, text)

	case services.ClaimWaitlisted:
		if result.NewlyWaitlisted {
			d.Notifications.NotifyAdminWaitlisted(ctx, user, result.Position)
			return d.reply(ctx, from.ID, fmt.Sprintf(constants.MsgWaitlistedNew, result.Position))
		}
		return d.reply(ctx, from.ID, fmt.Sprintf(constants.MsgWaitlistedAgain, result.Position))

	default:
		return d.reply(ctx, from.ID, denialText(result.Denial))
	}
}

func denialText(e services.Eligibility) string {
	switch e.Status {
	case services.EligibilityBlocked:
		if e.Reason != "" {
			return fmt.Sprintf(constants.MsgBlockedReason, e.Reason)
		}
		return constants.MsgBlocked
	case services.EligibilityCooldown:
		hours, minutes := e.RemainingHM()
		return fmt.Sprintf(constants.MsgCooldown, hours, minutes, e.UnlockAt.UTC().Format("2006-01-02 15:04 UTC"))
	default:
		return constants.MsgUnverified
	}
}

func channelList(channels []gormModels.Channel) string {
	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		lines = append(lines, fmt.Sprintf("• %s %s", ch.Mention(), ch.JoinLink))
	}
	return strings.Join(lines, "\n")
}

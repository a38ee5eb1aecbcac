package bot

import (
	"infinite-experiment/keydrop/internal/models/dtos"
	gormModels "infinite-experiment/keydrop/internal/models/gorm"
)

const (
	callbackVerify  = "verify"
	callbackClaim   = "start_claim"
	callbackConfirm = "confirm_action"
	callbackCancel  = "cancel_action"

	adminCallbackPrefix = "admin_"

	callbackAdminStats         = "admin_stats"
	callbackAdminAddKeys       = "admin_add_keys"
	callbackAdminAddChannel    = "admin_add_channel"
	callbackAdminRemoveChannel = "admin_remove_channel"
	callbackAdminListChannels  = "admin_list_channels"
	callbackAdminSetCooldown   = "admin_set_cooldown"
	callbackAdminSetKeyMessage = "admin_set_key_msg"
	callbackAdminBlock         = "admin_block"
	callbackAdminUnblock       = "admin_unblock"
	callbackAdminResetCooldown = "admin_reset_cooldown"
	callbackAdminResetAll      = "admin_reset_all"
	callbackAdminDeleteKeys    = "admin_delete_all_keys"
	callbackAdminUsers         = "admin_user_history"
	callbackAdminWaitlist      = "admin_waitlist"
	callbackAdminLeftUsers     = "admin_left_users"
	callbackAdminBroadcast     = "admin_broadcast"
	callbackAdminBack          = "admin_back_main"
)

func button(text, data string) dtos.InlineKeyboardButton {
	return dtos.InlineKeyboardButton{Text: text, CallbackData: data}
}

// welcomeKeyboard lists one join button per channel above the verify and claim buttons
func welcomeKeyboard(channels []gormModels.Channel) *dtos.InlineKeyboardMarkup {
	rows := make([][]dtos.InlineKeyboardButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, []dtos.InlineKeyboardButton{{Text: "📢 Join " + ch.Mention(), URL: ch.JoinLink}})
	}
	rows = append(rows, []dtos.InlineKeyboardButton{
		button("✅ Verify Membership", callbackVerify),
		button("🎁 Claim Key", callbackClaim),
	})
	return &dtos.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func adminPanelKeyboard() *dtos.InlineKeyboardMarkup {
	return &dtos.InlineKeyboardMarkup{InlineKeyboard: [][]dtos.InlineKeyboardButton{
		{button("📊 Statistics", callbackAdminStats), button("🔑 Add Keys", callbackAdminAddKeys)},
		{button("📢 Add Channel", callbackAdminAddChannel), button("🗑 Remove Channel", callbackAdminRemoveChannel)},
		{button("📋 List Channels", callbackAdminListChannels)},
		{button("⏰ Set Cooldown", callbackAdminSetCooldown), button("💬 Set Key Message", callbackAdminSetKeyMessage)},
		{button("⛔ Block User", callbackAdminBlock), button("✅ Unblock User", callbackAdminUnblock)},
		{button("♻️ Reset Cooldown", callbackAdminResetCooldown), button("♻️ Reset All", callbackAdminResetAll)},
		{button("👥 Users", callbackAdminUsers), button("📭 Waitlist", callbackAdminWaitlist)},
		{button("🚪 Left Channel", callbackAdminLeftUsers), button("📣 Broadcast", callbackAdminBroadcast)},
		{button("❌ Delete All Keys", callbackAdminDeleteKeys)},
	}}
}

func backKeyboard() *dtos.InlineKeyboardMarkup {
	return &dtos.InlineKeyboardMarkup{InlineKeyboard: [][]dtos.InlineKeyboardButton{
		{button("🔙 Back to Admin", callbackAdminBack)},
	}}
}

func confirmKeyboard() *dtos.InlineKeyboardMarkup {
	return &dtos.InlineKeyboardMarkup{InlineKeyboard: [][]dtos.InlineKeyboardButton{
		{button("✅ Confirm", callbackConfirm), button("❌ Cancel", callbackCancel)},
	}}
}

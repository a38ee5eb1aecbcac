package constants

// User-facing messages
const (
	MsgWelcome            = "🤖 Welcome to the Key Distribution Bot!\n\nTo get your key:\n1. Join all required channels below\n2. Tap 'Verify Membership'\n3. Claim your key!"
	MsgVerifiedNoChannels = "✅ No verification channels required. You're automatically verified!"
	MsgVerifySuccess      = "✅ Verification successful! You've joined all required channels.\n\nYou can now claim your key!"
	MsgVerifyMissing      = "❌ Please join all required channels:\n\n%s\n\nAfter joining, tap Verify Membership again."
	MsgVerifyUnknown      = "⚠️ We couldn't check some channels right now:\n\n%s\n\nPlease try again in a moment."
	MsgBlocked            = "🚫 You are blocked from claiming keys."
	MsgBlockedReason      = "🚫 You are blocked from claiming keys.\nReason: %s"
	MsgUnverified         = "You need to verify your channel membership first!"
	MsgCooldown           = "⏳ Cooldown active! Please wait %dh %dm (until %s)."
	MsgWaitlistedNew      = "📭 No keys are available right now. You've been added to the waitlist (position %d) and will receive a key automatically when stock arrives."
	MsgWaitlistedAgain    = "📭 You're already on the waitlist (position %d). Hang tight!"
	MsgKeyExpiry          = "\n\n⏰ Expires: %s"
	MsgKeyFromWaitlist    = "🎁 Your turn came up on the waitlist!\n\n"
	MsgAccessDenied       = "❌ Access denied."
	MsgInternalError      = "⚠️ Something went wrong, please try again later."
)

// Admin-facing messages
const (
	MsgAdminPanel           = "👨‍💼 Admin Panel\n\nSelect an option below:"
	MsgAdminWaitlistNotice  = "📭 Inventory empty: %s joined the waitlist (position %d)."
	MsgAdminAddKeysPrompt   = "🔑 Add Keys\n\nOne key per line, either:\nkey | duration | product\nkey | product | duration | link\n\nDuration: 24h, 12hours, 7d, 30days"
	MsgAdminChannelPrompt   = "📢 Send the channel handle to add (with or without @), optionally followed by a join link."
	MsgAdminRemovePrompt    = "🗑 Send the channel handle to remove."
	MsgAdminCooldownPrompt  = "⏰ Current cooldown: %d hours\n\nSend the new cooldown in hours (1-720):"
	MsgAdminKeyMsgPrompt    = "💬 Send the new key message. It must contain {key}. Also available: {duration} {product} {link}"
	MsgAdminBlockPrompt     = "⛔ Send: <user id> [reason]"
	MsgAdminUnblockPrompt   = "✅ Send the user id to unblock."
	MsgAdminResetPrompt     = "♻️ Send the user id whose cooldown should be reset."
	MsgAdminBroadcastPrompt = "📣 Send the broadcast text. Start with an image URL on its own first line to send a photo."
	MsgAdminConfirmReset    = "⚠️ Reset cooldowns for ALL users? This cannot be undone."
	MsgAdminConfirmDelete   = "⚠️ Delete ALL keys (used and unused)? Sales history is kept."
	MsgAdminCancelled       = "❎ Cancelled."
)

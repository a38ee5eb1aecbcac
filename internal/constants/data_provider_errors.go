package constants

// Transport provider error codes
const (
	ErrCodeMissingToken   = "MISSING_TOKEN"
	ErrCodeInvalidToken   = "INVALID_TOKEN"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeNetworkError   = "NETWORK_ERROR"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeChatNotFound   = "CHAT_NOT_FOUND"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
)

var ProviderErrorMessages = map[string]string{
	ErrCodeMissingToken:   "BOT_TOKEN is not configured",
	ErrCodeInvalidToken:   "Telegram rejected the bot token",
	ErrCodeRateLimited:    "Rate limit exceeded. Please try again later",
	ErrCodeNetworkError:   "Unable to reach the Telegram Bot API",
	ErrCodeForbidden:      "The bot was blocked by the user or lacks rights in the chat",
	ErrCodeChatNotFound:   "The chat does not exist or the bot is not a member",
	ErrCodeBadRequest:     "Telegram rejected the request",
	ErrCodeInvalidPayload: "Unable to decode the Telegram response",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ProviderErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}

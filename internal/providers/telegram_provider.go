package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/models/dtos"
)

// ProviderError is a failed Bot API call
type ProviderError struct {
	Code       string
	Message    string
	Details    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TelegramProvider is a thin client for the Telegram Bot API
type TelegramProvider struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewTelegramProvider creates a Bot API client. The HTTP timeout leaves room
// for long polls of pollTimeout.
func NewTelegramProvider(baseURL, token string, pollTimeout time.Duration) *TelegramProvider {
	return &TelegramProvider{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		Client: &http.Client{
			Timeout: pollTimeout + 15*time.Second,
		},
	}
}

// GetProviderType returns the provider type identifier
func (p *TelegramProvider) GetProviderType() string {
	return "telegram_bot_api"
}

// ============================================================================
// Messaging
// ============================================================================

// SendText sends plain text
func (p *TelegramProvider) SendText(ctx context.Context, chatID int64, text string) error {
	return p.SendMessage(ctx, chatID, text, nil)
}

// SendMessage sends text with an optional inline keyboard
func (p *TelegramProvider) SendMessage(ctx context.Context, chatID int64, text string, markup *dtos.InlineKeyboardMarkup) error {
	req := dtos.SendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ReplyMarkup:           markup,
		DisableWebPagePreview: true,
	}
	var result dtos.Message
	return p.call(ctx, "sendMessage", req, &result)
}

// SendPhoto sends an image by URL with a caption
func (p *TelegramProvider) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	req := dtos.SendPhotoRequest{ChatID: chatID, Photo: photoURL, Caption: caption}
	var result dtos.Message
	return p.call(ctx, "sendPhoto", req, &result)
}

// AnswerCallback stops the client's button spinner, optionally with a toast
func (p *TelegramProvider) AnswerCallback(ctx context.Context, callbackID, text string) error {
	req := dtos.AnswerCallbackQueryRequest{CallbackQueryID: callbackID, Text: text}
	var ok bool
	return p.call(ctx, "answerCallbackQuery", req, &ok)
}

// ============================================================================
// Membership
// ============================================================================

// CheckMembership reports whether the user is in @channel.
// Errors the API gives for users who never joined count as not a member;
// anything else is unknown.
func (p *TelegramProvider) CheckMembership(ctx context.Context, channel string, userID int64) (constants.MembershipStatus, error) {
	req := dtos.GetChatMemberRequest{ChatID: "@" + strings.TrimPrefix(channel, "@"), UserID: userID}

	var member dtos.ChatMember
	if err := p.call(ctx, "getChatMember", req, &member); err != nil {
		if perr, ok := err.(*ProviderError); ok && perr.Code == constants.ErrCodeBadRequest &&
			strings.Contains(strings.ToLower(perr.Details), "user not found") {
			return constants.MembershipNotMember, nil
		}
		return constants.MembershipUnknown, err
	}

	if constants.ChatMemberStatuses[member.Status] {
		return constants.MembershipMember, nil
	}
	return constants.MembershipNotMember, nil
}

// ============================================================================
// Updates
// ============================================================================

// GetUpdates long-polls for updates after offset
func (p *TelegramProvider) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]dtos.Update, error) {
	req := dtos.GetUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []dtos.Update
	if err := p.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetMe verifies the token
func (p *TelegramProvider) GetMe(ctx context.Context) (*dtos.TelegramUser, error) {
	var me dtos.TelegramUser
	if err := p.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ============================================================================
// HTTP Helper Methods
// ============================================================================

// call POSTs payload to a Bot API method and decodes result from the envelope
func (p *TelegramProvider) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	if p.Token == "" {
		return &ProviderError{
			Code:    constants.ErrCodeMissingToken,
			Message: constants.GetErrorMessage(constants.ErrCodeMissingToken),
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeInvalidPayload,
			Message: "Failed to marshal request body",
			Err:     err,
		}
	}

	url := fmt.Sprintf("%s/bot%s/%s", p.BaseURL, p.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to read response body",
			Err:     err,
		}
	}

	var envelope dtos.APIResponse[json.RawMessage]
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return &ProviderError{
			Code:    constants.ErrCodeInvalidPayload,
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidPayload),
			Details: string(bodyBytes),
			Err:     err,
		}
	}

	if !envelope.Ok || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p.buildAPIError(method, resp.StatusCode, &envelope)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return &ProviderError{
				Code:    constants.ErrCodeInvalidPayload,
				Message: constants.GetErrorMessage(constants.ErrCodeInvalidPayload),
				Details: string(envelope.Result),
				Err:     err,
			}
		}
	}
	return nil
}

// buildAPIError maps Bot API failures onto provider error codes
func (p *TelegramProvider) buildAPIError(method string, statusCode int, envelope *dtos.APIResponse[json.RawMessage]) error {
	code := envelope.ErrorCode
	if code == 0 {
		code = statusCode
	}

	perr := &ProviderError{
		Message: fmt.Sprintf("%s failed (%d)", method, code),
		Details: envelope.Description,
	}

	switch {
	case code == http.StatusTooManyRequests:
		perr.Code = constants.ErrCodeRateLimited
		if envelope.Parameters != nil {
			perr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
	case code == http.StatusForbidden:
		perr.Code = constants.ErrCodeForbidden
	case code == http.StatusUnauthorized || code == http.StatusNotFound:
		perr.Code = constants.ErrCodeInvalidToken
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(envelope.Description), "chat not found"):
		perr.Code = constants.ErrCodeChatNotFound
	default:
		perr.Code = constants.ErrCodeBadRequest
	}
	return perr
}

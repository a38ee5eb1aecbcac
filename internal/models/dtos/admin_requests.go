package dtos

import "time"

// AddKeysReq carries restock lines in the same grammar the bot accepts
type AddKeysReq struct {
	Keys string `json:"keys"`
}

type AddKeysResp struct {
	Added      []string `json:"added"`
	Duplicates []string `json:"duplicates"`
	Invalid    []string `json:"invalid"`
	Assigned   int      `json:"assigned_from_waitlist"`
	Notified   int      `json:"notified"`
}

type BlockUserReq struct {
	Reason string `json:"reason"`
}

type ProposeReq struct {
	Action string `json:"action"`
}

type ProposeResp struct {
	Token     string    `json:"token"`
	Action    string    `json:"action"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ConfirmReq struct {
	Token string `json:"token"`
}

// UpdateSettingsReq changes only the fields that are present
type UpdateSettingsReq struct {
	CooldownHours *int    `json:"cooldown_hours"`
	KeyMessage    *string `json:"key_message"`
}

type SettingsResp struct {
	CooldownHours int    `json:"cooldown_hours"`
	KeyMessage    string `json:"key_message"`
}

type AddChannelReq struct {
	Handle   string `json:"handle"`
	JoinLink string `json:"join_link"`
}

type ChannelResp struct {
	Handle   string `json:"handle"`
	JoinLink string `json:"join_link"`
}

type BroadcastReq struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
}

package entities

import "time"

// DistributionStats is the dashboard summary of users, inventory and sales
type DistributionStats struct {
	TotalUsers    int `db:"total_users" json:"total_users"`
	VerifiedUsers int `db:"verified_users" json:"verified_users"`
	BlockedUsers  int `db:"blocked_users" json:"blocked_users"`
	TotalKeys     int `db:"total_keys" json:"total_keys"`
	UsedKeys      int `db:"used_keys" json:"used_keys"`
	AvailableKeys int `db:"available_keys" json:"available_keys"`
	TotalSales    int `db:"total_sales" json:"total_sales"`
	WaitlistSize  int `db:"waitlist_size" json:"waitlist_size"`

	RecentClaims []RecentClaim `db:"-" json:"recent_claims"`
}

type RecentClaim struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Username   string    `db:"username" json:"username"`
	KeyToken   string    `db:"key_token" json:"key"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

type UserRow struct {
	ID               int64      `db:"id" json:"id"`
	Username         string     `db:"username" json:"username"`
	Verified         bool       `db:"verified" json:"verified"`
	Blocked          bool       `db:"blocked" json:"blocked"`
	BlockReason      string     `db:"block_reason" json:"block_reason,omitempty"`
	TotalKeysClaimed int        `db:"total_keys_claimed" json:"total_keys_claimed"`
	LastKeyTime      *time.Time `db:"last_key_time" json:"last_key_time,omitempty"`
	FirstSeen        time.Time  `db:"first_seen" json:"first_seen"`
}

type WaitlistRow struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	Username      string    `db:"username" json:"username"`
	EnqueuedAt    time.Time `db:"enqueued_at" json:"enqueued_at"`
	NotifiedAdmin bool      `db:"notified_admin" json:"notified_admin"`
	Position      int       `db:"-" json:"position"`
}

// LeftUserRow is an active sale whose holder was found outside a required channel
type LeftUserRow struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Username   string    `db:"username" json:"username"`
	KeyToken   string    `db:"key_token" json:"key"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
}

type SaleHistoryRow struct {
	ID          uint      `db:"id" json:"id"`
	KeyToken    string    `db:"key_token" json:"key"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	Active      bool      `db:"active" json:"active"`
	LeftChannel bool      `db:"left_channel" json:"left_channel"`
}

// Page describes an offset window into a listing
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

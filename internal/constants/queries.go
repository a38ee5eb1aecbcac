package constants

// Read-side queries run through sqlx. Placeholders are '?' and rebound per driver.
const (
	CountStats = `
	SELECT
		(SELECT COUNT(*) FROM users) AS total_users,
		(SELECT COUNT(*) FROM users WHERE verified = ?) AS verified_users,
		(SELECT COUNT(*) FROM users WHERE blocked = ?) AS blocked_users,
		(SELECT COUNT(*) FROM keys) AS total_keys,
		(SELECT COUNT(*) FROM keys WHERE used = ?) AS used_keys,
		(SELECT COUNT(*) FROM keys WHERE used = ?) AS available_keys,
		(SELECT COUNT(*) FROM sales) AS total_sales,
		(SELECT COUNT(*) FROM waitlist_entries) AS waitlist_size
	`

	RecentClaims = `
	SELECT s.user_id, COALESCE(u.username, '') AS username, s.key_token, s.assigned_at
	FROM sales s
	LEFT JOIN users u ON u.id = s.user_id
	ORDER BY s.assigned_at DESC, s.id DESC
	LIMIT ?
	`

	ListUsersPage = `
	SELECT id, COALESCE(username, '') AS username, verified, blocked,
		COALESCE(block_reason, '') AS block_reason, total_keys_claimed, last_key_time, first_seen
	FROM users
	ORDER BY first_seen ASC, id ASC
	LIMIT ? OFFSET ?
	`

	ListWaitlistPage = `
	SELECT w.user_id, COALESCE(u.username, '') AS username, w.enqueued_at, w.notified_admin
	FROM waitlist_entries w
	LEFT JOIN users u ON u.id = w.user_id
	ORDER BY w.enqueued_at ASC, w.id ASC
	LIMIT ? OFFSET ?
	`

	ListLeftUsers = `
	SELECT s.user_id, COALESCE(u.username, '') AS username, s.key_token, s.assigned_at, s.expires_at
	FROM sales s
	LEFT JOIN users u ON u.id = s.user_id
	WHERE s.left_channel = ?
	ORDER BY s.assigned_at DESC, s.id DESC
	LIMIT ? OFFSET ?
	`

	UserHistory = `
	SELECT s.id, s.key_token, s.assigned_at, s.expires_at, s.active, s.left_channel
	FROM sales s
	WHERE s.user_id = ?
	ORDER BY s.assigned_at DESC, s.id DESC
	`
)

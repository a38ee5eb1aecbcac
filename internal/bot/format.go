package bot

import (
	"fmt"
	"strings"

	"infinite-experiment/keydrop/internal/models/entities"
	"infinite-experiment/keydrop/internal/services"
)

const timeLayout = "2006-01-02 15:04"

func formatStats(s *entities.DistributionStats) string {
	var b strings.Builder
	b.WriteString("📊 Statistics\n\n")
	fmt.Fprintf(&b, "👥 Users: %d (verified %d, blocked %d)\n", s.TotalUsers, s.VerifiedUsers, s.BlockedUsers)
	fmt.Fprintf(&b, "🔑 Keys: %d total, %d used, %d available\n", s.TotalKeys, s.UsedKeys, s.AvailableKeys)
	fmt.Fprintf(&b, "🧾 Sales: %d\n", s.TotalSales)
	fmt.Fprintf(&b, "📭 Waitlist: %d\n", s.WaitlistSize)

	if len(s.RecentClaims) > 0 {
		b.WriteString("\nRecent claims:\n")
		for _, c := range s.RecentClaims {
			fmt.Fprintf(&b, "• %s %s %s\n", displayName(c.UserID, c.Username), c.KeyToken, c.AssignedAt.UTC().Format(timeLayout))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAddKeys(r *services.AddKeysResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔑 Added %d keys", len(r.Added))
	if len(r.Duplicates) > 0 {
		fmt.Fprintf(&b, "\n⚠️ Skipped %d duplicates: %s", len(r.Duplicates), strings.Join(r.Duplicates, ", "))
	}
	if len(r.Invalid) > 0 {
		fmt.Fprintf(&b, "\n❌ %d invalid lines:", len(r.Invalid))
		for _, inv := range r.Invalid {
			fmt.Fprintf(&b, "\n• %s", inv.Input)
		}
	}
	if len(r.Assignments) > 0 {
		fmt.Fprintf(&b, "\n🎁 %d keys went to waitlisted users", len(r.Assignments))
	}
	return b.String()
}

func formatUsers(rows []entities.UserRow) string {
	if len(rows) == 0 {
		return "👥 No users yet."
	}
	var b strings.Builder
	b.WriteString("👥 Users\n")
	for _, u := range rows {
		flags := ""
		if u.Verified {
			flags += " ✅"
		}
		if u.Blocked {
			flags += " ⛔"
		}
		fmt.Fprintf(&b, "\n• %s (%d) keys: %d%s", displayName(u.ID, u.Username), u.ID, u.TotalKeysClaimed, flags)
	}
	b.WriteString("\n\nSend /history <user id> for details.")
	return b.String()
}

func formatWaitlist(rows []entities.WaitlistRow) string {
	if len(rows) == 0 {
		return "📭 The waitlist is empty."
	}
	var b strings.Builder
	b.WriteString("📭 Waitlist\n")
	for _, w := range rows {
		fmt.Fprintf(&b, "\n%d. %s since %s", w.Position, displayName(w.UserID, w.Username), w.EnqueuedAt.UTC().Format(timeLayout))
	}
	return b.String()
}

func formatLeftUsers(rows []entities.LeftUserRow) string {
	if len(rows) == 0 {
		return "🚪 No key holders have left a required channel."
	}
	var b strings.Builder
	b.WriteString("🚪 Key holders who left a required channel\n")
	for _, l := range rows {
		fmt.Fprintf(&b, "\n• %s %s (expires %s)", displayName(l.UserID, l.Username), l.KeyToken, l.ExpiresAt.UTC().Format(timeLayout))
	}
	return b.String()
}

func formatUserHistory(h *services.UserHistory) string {
	u := h.User
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s (%d)\n", u.DisplayName(), u.ID)
	fmt.Fprintf(&b, "Verified: %t\nBlocked: %t", u.Verified, u.Blocked)
	if u.BlockReason != nil {
		fmt.Fprintf(&b, " (%s)", *u.BlockReason)
	}
	fmt.Fprintf(&b, "\nKeys claimed: %d", u.TotalKeysClaimed)
	if u.LastKeyTime != nil {
		fmt.Fprintf(&b, "\nLast claim: %s", u.LastKeyTime.UTC().Format(timeLayout))
	}
	if h.WaitlistPosition > 0 {
		fmt.Fprintf(&b, "\nWaitlist position: %d", h.WaitlistPosition)
	}
	for _, s := range h.Sales {
		status := "expired"
		if s.Active {
			status = "active"
		}
		if s.LeftChannel {
			status += ", left channel"
		}
		fmt.Fprintf(&b, "\n• %s %s (%s)", s.AssignedAt.UTC().Format(timeLayout), s.KeyToken, status)
	}
	return b.String()
}

func displayName(userID int64, username string) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprint(userID)
}

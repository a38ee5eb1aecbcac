package constants

// MembershipStatus is the tri-state answer of a channel membership check
type MembershipStatus string

const (
	MembershipMember    MembershipStatus = "member"
	MembershipNotMember MembershipStatus = "not_member"
	MembershipUnknown   MembershipStatus = "unknown"
)

func (m MembershipStatus) String() string { return string(m) }

// ChatMemberStatuses that count as belonging to a channel
var ChatMemberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
	"restricted":    true,
}

package model

// Email status constants.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusDelayed   = "delayed"
	StatusFailed    = "failed"
)

// Badge is the visual indicator the history view renders for a status.
type Badge struct {
	Icon  string
	Class string
}

// StatusBadge maps an email status to its display badge. Unknown statuses
// render the same as pending.
func StatusBadge(status string) Badge {
	switch status {
	case StatusDelivered, StatusSent:
		return Badge{Icon: "check", Class: "badge-ok"}
	case StatusFailed:
		return Badge{Icon: "cross", Class: "badge-failed"}
	default:
		return Badge{Icon: "clock", Class: "badge-pending"}
	}
}

// ValidStatus reports whether s is a known email status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusDelayed, StatusFailed:
		return true
	}
	return false
}

package domain

import "fmt"

// DeliveryState tracks a single-use token through issue-then-deliver.
//
//	Pending --(delivery ok)--> Committed
//	Pending --(delivery failed, fields cleared)--> RolledBack
//
// The digest is durable before delivery is attempted, so Pending always
// means "stored, not yet handed off".
type DeliveryState int

const (
	DeliveryPending DeliveryState = iota
	DeliveryCommitted
	DeliveryRolledBack
)

func (s DeliveryState) String() string {
	switch s {
	case DeliveryPending:
		return "pending"
	case DeliveryCommitted:
		return "committed"
	case DeliveryRolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("DeliveryState(%d)", int(s))
}

// Transition returns the state reached from s given the delivery outcome.
// Only Pending may transition; terminal states are returned unchanged with
// ok=false.
func (s DeliveryState) Transition(delivered bool) (next DeliveryState, ok bool) {
	if s != DeliveryPending {
		return s, false
	}
	if delivered {
		return DeliveryCommitted, true
	}
	return DeliveryRolledBack, true
}

// TokenKind names the single-use token classes.
type TokenKind string

const (
	TokenEmailVerification TokenKind = "email_verification"
	TokenPasswordReset     TokenKind = "password_reset"
)

package models

// Machine-readable rejection codes. The UI keys messages off these, so they
// are part of the API contract and must stay stable.
const (
	ReasonSlotFull            = "slot-full"
	ReasonSlotLocked          = "slot-locked"
	ReasonSlotMissing         = "slot-missing"
	ReasonNotFound            = "not-found"
	ReasonAlreadyCheckedIn    = "already-checked-in"
	ReasonCancelled           = "cancelled"
	ReasonExpired             = "expired"
	ReasonAlreadyAssigned     = "already-assigned"
	ReasonAlreadyResolved     = "already-resolved"
	ReasonInvalidState        = "invalid-state"
	ReasonResourceUnavailable = "resource-unavailable"
)

// Reject is an expected, caller-visible refusal. It is distinct from an
// internal error: a Reject is a correct outcome of the state machine.
type Reject struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (r *Reject) Error() string {
	return r.Reason + ": " + r.Message
}

func Rejected(reason, message string) *Reject {
	return &Reject{Reason: reason, Message: message}
}

// AsReject unwraps err into a *Reject if it is one.
func AsReject(err error) (*Reject, bool) {
	rej, ok := err.(*Reject)
	return rej, ok
}

package ticketing

import "time"

type TicketType string

const (
	TicketTypeSingle   TicketType = "single"
	TicketTypeMulti    TicketType = "multi"
	TicketTypeTimepass TicketType = "timepass"
	TicketTypeCredit   TicketType = "credit"
)

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is a signed, time and quantity bounded entry credential. Used
// never exceeds QuotaOrMinutes and Status only ever moves forward from
// active.
type Ticket struct {
	ID             string
	ShortCode      string
	Token          string
	Signature      string
	KeyVersion     string
	Type           TicketType
	QuotaOrMinutes int64
	ValidFrom      time.Time
	ValidTo        time.Time
	LotID          string
	ShiftID        string
	Price          float64
	IssuedAt       time.Time
	Used           int64
	Status         TicketStatus
	BoundDeviceIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BoundTo reports whether the ticket may be redeemed at the given
// device. An empty binding set means any device.
func (t Ticket) BoundTo(deviceID string) bool {
	if len(t.BoundDeviceIDs) == 0 {
		return true
	}

	for _, id := range t.BoundDeviceIDs {
		if id == deviceID {
			return true
		}
	}

	return false
}

type FailReason string

const (
	ReasonExpired          FailReason = "expired"
	ReasonNotStarted       FailReason = "not_started"
	ReasonQuotaExhausted   FailReason = "quota_exhausted"
	ReasonDuplicateUse     FailReason = "duplicate_use"
	ReasonInvalidSignature FailReason = "invalid_signature"
	ReasonWrongDevice      FailReason = "wrong_device"
)

// Code maps a failure reason to its wire error code.
func (r FailReason) Code() string {
	switch r {
	case ReasonExpired:
		return "E_EXPIRED"
	case ReasonNotStarted:
		return "E_NOT_STARTED"
	case ReasonQuotaExhausted:
		return "E_EXHAUSTED"
	case ReasonDuplicateUse:
		return "E_DUPLICATE_USE"
	case ReasonInvalidSignature:
		return "E_INVALID_SIG"
	case ReasonWrongDevice:
		return "E_WRONG_DEVICE"
	}

	return ""
}

package bootstrap

import (
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

// TicketSnapshot carries everything a gate device needs to adjudicate
// a scan against this ticket while offline.
type TicketSnapshot struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	Token          string    `json:"token"`
	Signature      string    `json:"signature"`
	KeyVersion     string    `json:"key_version"`
	Type           string    `json:"type"`
	QuotaOrMinutes int64     `json:"quota_or_minutes"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidTo        time.Time `json:"valid_to"`
	LotID          string    `json:"lot_id"`
	Used           int64     `json:"used"`
	Status         string    `json:"status"`
	BoundDeviceIDs []string  `json:"bound_device_ids,omitempty"`
}

func (s *TicketSnapshot) PopulateFromEntity(t ticketing.Ticket) {
	s.ID = t.ID
	s.ShortCode = t.ShortCode
	s.Token = t.Token
	s.Signature = t.Signature
	s.KeyVersion = t.KeyVersion
	s.Type = string(t.Type)
	s.QuotaOrMinutes = t.QuotaOrMinutes
	s.ValidFrom = t.ValidFrom
	s.ValidTo = t.ValidTo
	s.LotID = t.LotID
	s.Used = t.Used
	s.Status = string(t.Status)
	s.BoundDeviceIDs = t.BoundDeviceIDs
}

// GateConfig is the operating policy pushed to devices at bootstrap.
type GateConfig struct {
	OfflineWindowMinutes int64 `json:"offline_window_minutes"`
	MaxQueuedOps         int64 `json:"max_queued_ops"`
	CacheTTLMinutes      int64 `json:"cache_ttl_minutes"`
	ReplayWindowSeconds  int64 `json:"replay_window_seconds"`
}

type BootstrapWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type BootstrapResponse struct {
	DeviceID string           `json:"device_id"`
	Window   BootstrapWindow  `json:"window"`
	Config   GateConfig       `json:"config"`
	Tickets  []TicketSnapshot `json:"tickets"`
}

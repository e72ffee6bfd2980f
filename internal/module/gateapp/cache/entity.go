package cache

import "time"

// LocalRedemption is an advisory decision recorded at the gate. It is
// the device-side mirror of the server's redemption row, kept until the
// next bootstrap supersedes it.
type LocalRedemption struct {
	OpID       string
	TicketID   string
	Outcome    string
	FailReason *string
	ScannedAt  time.Time
}

const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)

// Keys of the gate_config keyed storage.
const (
	ConfigKeyOfflineWindowMinutes = "offline_window_minutes"
	ConfigKeyMaxQueuedOps         = "max_queued_ops"
	ConfigKeyCacheTTLMinutes      = "cache_ttl_minutes"
	ConfigKeyReplayWindowSeconds  = "replay_window_seconds"
	ConfigKeyBootstrapFetchedAt   = "bootstrap_fetched_at"
)

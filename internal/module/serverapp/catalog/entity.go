package catalog

import (
	"time"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

// Package is a sellable ticket package. Catalog maintenance is owned
// by the admin service; this module only reads.
type Package struct {
	ID              string
	Name            string
	Type            ticketing.TicketType
	Price           float64
	QuotaOrMinutes  int64
	ValidityMinutes *int64
	Active          bool
	UpdatedAt       time.Time
}

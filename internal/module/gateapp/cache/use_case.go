package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/serverapi"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

type RefreshUseCase interface {
	// Refresh pulls a fresh bootstrap snapshot and swaps it in.
	Refresh(ctx context.Context) error
	// RefreshIfStale refreshes only past the cache TTL, so a flapping
	// network does not thrash the snapshot.
	RefreshIfStale(ctx context.Context) error
}

type refreshUseCase struct {
	logger     *logrus.Logger
	timeout    time.Duration
	cacheTTL   time.Duration
	serverAPI  serverapi.Repository
	tickets    TicketCacheRepository
	gateConfig GateConfigRepository
	now        func() time.Time
}

type RefreshUseCaseProperty struct {
	Logger     *logrus.Logger
	Timeout    time.Duration
	CacheTTL   time.Duration
	ServerAPI  serverapi.Repository
	Tickets    TicketCacheRepository
	GateConfig GateConfigRepository
}

func NewRefreshUseCase(props RefreshUseCaseProperty) RefreshUseCase {
	return &refreshUseCase{
		logger:     props.Logger,
		timeout:    props.Timeout,
		cacheTTL:   props.CacheTTL,
		serverAPI:  props.ServerAPI,
		tickets:    props.Tickets,
		gateConfig: props.GateConfig,
		now:        time.Now,
	}
}

// Refresh implements RefreshUseCase.
func (u *refreshUseCase) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	resp, err := u.serverAPI.Bootstrap(ctx)
	if err != nil {
		return err
	}

	tickets := make([]ticketing.Ticket, len(resp.Tickets))
	for k, s := range resp.Tickets {
		tickets[k] = ticketing.Ticket{
			ID:             s.ID,
			ShortCode:      s.ShortCode,
			Token:          s.Token,
			Signature:      s.Signature,
			KeyVersion:     s.KeyVersion,
			Type:           ticketing.TicketType(s.Type),
			QuotaOrMinutes: s.QuotaOrMinutes,
			ValidFrom:      s.ValidFrom,
			ValidTo:        s.ValidTo,
			LotID:          s.LotID,
			Used:           s.Used,
			Status:         ticketing.TicketStatus(s.Status),
			BoundDeviceIDs: s.BoundDeviceIDs,
		}
	}

	if err := u.tickets.ReplaceAll(ctx, tickets); err != nil {
		return err
	}

	entries := map[string]string{
		ConfigKeyOfflineWindowMinutes: strconv.FormatInt(resp.Config.OfflineWindowMinutes, 10),
		ConfigKeyMaxQueuedOps:         strconv.FormatInt(resp.Config.MaxQueuedOps, 10),
		ConfigKeyCacheTTLMinutes:      strconv.FormatInt(resp.Config.CacheTTLMinutes, 10),
		ConfigKeyReplayWindowSeconds:  strconv.FormatInt(resp.Config.ReplayWindowSeconds, 10),
		ConfigKeyBootstrapFetchedAt:   strconv.FormatInt(u.now().Unix(), 10),
	}

	for key, value := range entries {
		if err := u.gateConfig.Set(ctx, key, value); err != nil {
			return err
		}
	}

	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"tickets": len(tickets),
		"window":  resp.Window,
	}).Info("bootstrap cache refreshed")

	return nil
}

// RefreshIfStale implements RefreshUseCase.
func (u *refreshUseCase) RefreshIfStale(ctx context.Context) error {
	if !u.gateConfig.IsStale(ctx, u.cacheTTL) {
		return nil
	}

	return u.Refresh(ctx)
}

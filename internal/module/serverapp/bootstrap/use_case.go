package bootstrap

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/ticket"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
)

type BootstrapUseCase interface {
	// Bootstrap snapshots the recently issued active tickets plus the
	// operating policy a gate device works from between syncs. A
	// windowMinutes of zero falls back to the configured window.
	Bootstrap(ctx context.Context, windowMinutes int64) (BootstrapResponse, error)
}

type bootstrapUseCase struct {
	logger           *logrus.Logger
	timeout          time.Duration
	window           time.Duration
	gateConfig       GateConfig
	ticketRepository ticket.TicketRepository
	now              func() time.Time
}

type BootstrapUseCaseProperty struct {
	Logger           *logrus.Logger
	Timeout          time.Duration
	Window           time.Duration
	GateConfig       GateConfig
	TicketRepository ticket.TicketRepository
}

func NewBootstrapUseCase(props BootstrapUseCaseProperty) BootstrapUseCase {
	return &bootstrapUseCase{
		logger:           props.Logger,
		timeout:          props.Timeout,
		window:           props.Window,
		gateConfig:       props.GateConfig,
		ticketRepository: props.TicketRepository,
		now:              time.Now,
	}
}

// Bootstrap implements BootstrapUseCase.
func (u *bootstrapUseCase) Bootstrap(ctx context.Context, windowMinutes int64) (BootstrapResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return BootstrapResponse{}, err
	}

	window := u.window
	if windowMinutes > 0 {
		window = time.Duration(windowMinutes) * time.Minute
	}

	to := u.now()
	from := to.Add(-window)

	tickets, err := u.ticketRepository.FindManyActiveIssuedBetween(ctx, from, to, nil)
	if err != nil {
		return BootstrapResponse{}, err
	}

	snapshots := make([]TicketSnapshot, len(tickets))
	for k, t := range tickets {
		snapshots[k].PopulateFromEntity(t)
	}

	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"device_id": acc.DeviceID,
		"tickets":   len(snapshots),
	}).Info("device bootstrapped")

	return BootstrapResponse{
		DeviceID: acc.DeviceID,
		Window:   BootstrapWindow{From: from, To: to},
		Config:   u.gateConfig,
		Tickets:  snapshots,
	}, nil
}

package ticket

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type TicketUseCase interface {
	GetTicket(ctx context.Context, ID string) (GetTicketResponse, error)
}

type ticketUseCase struct {
	logger           *logrus.Logger
	timeout          time.Duration
	ticketRepository TicketRepository
}

type TicketUseCaseProperty struct {
	Logger           *logrus.Logger
	Timeout          time.Duration
	TicketRepository TicketRepository
}

func NewTicketUseCase(props TicketUseCaseProperty) TicketUseCase {
	return &ticketUseCase{
		logger:           props.Logger,
		timeout:          props.Timeout,
		ticketRepository: props.TicketRepository,
	}
}

// GetTicket implements TicketUseCase.
func (u *ticketUseCase) GetTicket(ctx context.Context, ID string) (GetTicketResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	t, err := u.ticketRepository.FindByID(ctx, ID, nil)
	if err != nil {
		return GetTicketResponse{}, err
	}

	resp := GetTicketResponse{}
	resp.PopulateFromEntity(t)

	return resp, nil
}

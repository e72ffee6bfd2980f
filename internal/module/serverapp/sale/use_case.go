package sale

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/catalog"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/ticket"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type SaleUseCase interface {
	// PlaceSale completes an online sale and mints its tickets in one
	// transaction; a sale never commits with an unsigned ticket.
	PlaceSale(ctx context.Context, req PlaceSaleRequest) (PlaceSaleResponse, error)
	// ApplyFromDevice replays an offline sale inside the sync
	// coordinator's transaction.
	ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceSaleEvent) (PlaceSaleResponse, error)
}

type saleUseCase struct {
	logger            *logrus.Logger
	timeout           time.Duration
	issuer            *ticket.Issuer
	packageRepository catalog.PackageRepository
	saleRepository    SaleRepository
	ticketRepository  ticket.TicketRepository
	publisher         pubsub.Publisher
}

type SaleUseCaseProperty struct {
	Logger            *logrus.Logger
	Timeout           time.Duration
	Issuer            *ticket.Issuer
	PackageRepository catalog.PackageRepository
	SaleRepository    SaleRepository
	TicketRepository  ticket.TicketRepository
	Publisher         pubsub.Publisher
}

func NewSaleUseCase(props SaleUseCaseProperty) SaleUseCase {
	return &saleUseCase{
		logger:            props.Logger,
		timeout:           props.Timeout,
		issuer:            props.Issuer,
		packageRepository: props.PackageRepository,
		saleRepository:    props.SaleRepository,
		ticketRepository:  props.TicketRepository,
		publisher:         props.Publisher,
	}
}

// PlaceSale implements SaleUseCase.
func (u *saleUseCase) PlaceSale(ctx context.Context, req PlaceSaleRequest) (PlaceSaleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return PlaceSaleResponse{}, err
	}

	tx, err := u.saleRepository.BeginTx(ctx)
	if err != nil {
		return PlaceSaleResponse{}, err
	}

	resp, err := u.place(ctx, tx, acc.DeviceID, DeviceSaleEvent{
		ShiftID:   req.ShiftID,
		CashierID: req.CashierID,
		Lines:     req.Lines,
		SoldAt:    time.Now(),
	})
	if err != nil {
		u.saleRepository.Rollback(ctx, tx)
		return PlaceSaleResponse{}, err
	}

	if err := u.saleRepository.CommitTx(ctx, tx); err != nil {
		return PlaceSaleResponse{}, err
	}

	return resp, nil
}

// ApplyFromDevice implements SaleUseCase.
func (u *saleUseCase) ApplyFromDevice(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceSaleEvent) (PlaceSaleResponse, error) {
	return u.place(ctx, tx, deviceID, e)
}

func (u *saleUseCase) place(ctx context.Context, tx *sql.Tx, deviceID string, e DeviceSaleEvent) (PlaceSaleResponse, error) {
	if len(e.Lines) == 0 {
		return PlaceSaleResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "sale has no lines")
	}

	soldAt := e.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now()
	}

	s := Sale{
		ID:        util.GenerateTimestampWithPrefix("SL"),
		DeviceID:  deviceID,
		ShiftID:   e.ShiftID,
		CashierID: e.CashierID,
		CreatedAt: soldAt,
	}

	var allTickets []ticketing.Ticket

	for _, line := range e.Lines {
		pkg, err := u.packageRepository.FindByID(ctx, line.PackageID, tx)
		if err != nil {
			return PlaceSaleResponse{}, err
		}

		if !pkg.Active {
			return PlaceSaleResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "package is not sellable")
		}

		tickets, err := u.issuer.Issue(ticket.IssueRequest{
			Package:  pkg,
			Quantity: line.Quantity,
			LotID:    s.ID,
			ShiftID:  e.ShiftID,
		})
		if err != nil {
			return PlaceSaleResponse{}, err
		}

		allTickets = append(allTickets, tickets...)

		s.Subtotal += pkg.Price * float64(line.Quantity)
		s.Lines = append(s.Lines, Line{
			SaleID:    s.ID,
			PackageID: pkg.ID,
			Quantity:  line.Quantity,
			UnitPrice: pkg.Price,
		})
	}

	s.Total = s.Subtotal

	if err := u.saleRepository.Save(ctx, s, tx); err != nil {
		return PlaceSaleResponse{}, err
	}

	for _, line := range s.Lines {
		if err := u.saleRepository.SaveLine(ctx, line, tx); err != nil {
			return PlaceSaleResponse{}, err
		}
	}

	ticketIDs := make([]string, len(allTickets))
	for k, t := range allTickets {
		if err := u.ticketRepository.Save(ctx, t, tx); err != nil {
			return PlaceSaleResponse{}, err
		}
		ticketIDs[k] = t.ID
	}

	eventBuff, _ := json.Marshal(TicketIssuedEvent{
		SaleID:    s.ID,
		TicketIDs: ticketIDs,
		DeviceID:  deviceID,
		ShiftID:   e.ShiftID,
	})
	u.publisher.Publish(ctx, "ticket-issued", s.ID, nil, eventBuff)

	resp := PlaceSaleResponse{}
	resp.PopulateFromEntity(s, allTickets)

	return resp, nil
}

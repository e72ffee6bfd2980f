package ticket

import (
	"net/http"

	"github.com/gorilla/mux"

	internalMiddleware "github.com/tsel-ticketmaster/tm-gate/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-gate/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/response"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type HTTPHandler struct {
	TicketUseCase TicketUseCase
}

func InitHTTPHandler(router *mux.Router, deviceSession *internalMiddleware.DeviceSession, ticketUseCase TicketUseCase) {
	handler := &HTTPHandler{
		TicketUseCase: ticketUseCase,
	}

	router.HandleFunc("/tm-gate/v1/serverapp/tickets/{id}", publicMiddleware.SetRouteChain(handler.GetTicket, deviceSession.Verify)).Methods(http.MethodGet)
}

func (handler HTTPHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vars := mux.Vars(r)

	resp, err := handler.TicketUseCase.GetTicket(ctx, vars["id"])
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "ticket's properties",
		Data:    resp,
		Meta:    nil,
	})
}

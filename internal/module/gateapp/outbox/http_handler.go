package outbox

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/response"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// HTTPHandler exposes the operator's view of the outbox on the gate's
// local listener.
type HTTPHandler struct {
	OutboxUseCase OutboxUseCase
	Drainer       *Drainer
}

func InitHTTPHandler(router *mux.Router, outboxUseCase OutboxUseCase, drainer *Drainer) {
	handler := &HTTPHandler{
		OutboxUseCase: outboxUseCase,
		Drainer:       drainer,
	}

	router.HandleFunc("/tm-gate/v1/gateapp/outbox/failed", handler.ListFailed).Methods(http.MethodGet)
	router.HandleFunc("/tm-gate/v1/gateapp/outbox/failed/retry", handler.RetryFailed).Methods(http.MethodPost)
	router.HandleFunc("/tm-gate/v1/gateapp/outbox/failed", handler.ClearFailed).Methods(http.MethodDelete)
}

func (handler HTTPHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := handler.OutboxUseCase.ListFailed(ctx)
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
		Message: "failed outbox events have been successfully listed",
		Data:    events,
		Meta:    nil,
	})
}

func (handler HTTPHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	affected, err := handler.OutboxUseCase.RetryFailed(ctx)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	handler.Drainer.Kick()

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "failed outbox events have been successfully requeued",
		Data:    map[string]int64{"requeued": affected},
		Meta:    nil,
	})
}

func (handler HTTPHandler) ClearFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	affected, err := handler.OutboxUseCase.ClearFailed(ctx)
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
		Message: "failed outbox events have been successfully cleared",
		Data:    map[string]int64{"cleared": affected},
		Meta:    nil,
	})
}

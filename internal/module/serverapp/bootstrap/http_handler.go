package bootstrap

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	internalMiddleware "github.com/tsel-ticketmaster/tm-gate/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-gate/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/response"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type HTTPHandler struct {
	BootstrapUseCase BootstrapUseCase
}

func InitHTTPHandler(router *mux.Router, deviceSession *internalMiddleware.DeviceSession, bootstrapUseCase BootstrapUseCase) {
	handler := &HTTPHandler{
		BootstrapUseCase: bootstrapUseCase,
	}

	router.HandleFunc("/tm-gate/v1/serverapp/bootstrap", publicMiddleware.SetRouteChain(handler.Bootstrap, deviceSession.Verify)).Methods(http.MethodGet)
}

func (handler HTTPHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var windowMinutes int64
	if raw := r.URL.Query().Get("window_minutes"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
				Status:  status.BAD_REQUEST,
				Message: "window_minutes must be a positive integer",
			})

			return
		}
		windowMinutes = parsed
	}

	resp, err := handler.BootstrapUseCase.Bootstrap(ctx, windowMinutes)
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
		Message: "device bootstrap snapshot has been successfully built",
		Data:    resp,
		Meta:    nil,
	})
}

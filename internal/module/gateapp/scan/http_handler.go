package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/response"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// HTTPHandler serves the scanner front-end on the gate's local
// listener. There is no session middleware here: the listener binds to
// the device itself.
type HTTPHandler struct {
	Validate    *validator.Validate
	ScanUseCase ScanUseCase
}

func InitHTTPHandler(router *mux.Router, validate *validator.Validate, scanUseCase ScanUseCase) {
	handler := &HTTPHandler{
		Validate:    validate,
		ScanUseCase: scanUseCase,
	}

	router.HandleFunc("/tm-gate/v1/gateapp/scan", handler.Scan).Methods(http.MethodPost)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) error {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields := err.(validator.ValidationErrors)

	errMessages := make([]string, len(errorFields))

	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Field(), errorField.Value())
	}

	return fmt.Errorf("%s", strings.Join(errMessages, ", "))
}

func (handler HTTPHandler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := ScanRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.ScanUseCase.Scan(ctx, req)
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
		Message: "scan has been adjudicated",
		Data:    resp,
		Meta:    nil,
	})
}

package serverapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// Repository is the gate's client to the authoritative server.
type Repository interface {
	SyncBatch(ctx context.Context, ops []Operation) (SyncBatchResponse, error)
	Bootstrap(ctx context.Context) (BootstrapResponse, error)
}

type repository struct {
	logger   *logrus.Logger
	client   *http.Client
	baseURL  string
	apiToken string
}

type RepositoryProperty struct {
	Logger   *logrus.Logger
	Client   *http.Client
	BaseURL  string
	APIToken string
}

func NewRepository(props RepositoryProperty) Repository {
	return &repository{
		logger:   props.Logger,
		client:   props.Client,
		baseURL:  props.BaseURL,
		apiToken: props.APIToken,
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// SyncBatch implements Repository.
func (r *repository) SyncBatch(ctx context.Context, ops []Operation) (SyncBatchResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{"operations": ops})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return SyncBatchResponse{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while building sync request")
	}

	var resp SyncBatchResponse
	if err := r.do(ctx, http.MethodPost, "/tm-gate/v1/serverapp/sync", bytes.NewReader(payload), &resp); err != nil {
		return SyncBatchResponse{}, err
	}

	return resp, nil
}

// Bootstrap implements Repository.
func (r *repository) Bootstrap(ctx context.Context) (BootstrapResponse, error) {
	var resp BootstrapResponse
	if err := r.do(ctx, http.MethodGet, "/tm-gate/v1/serverapp/bootstrap", nil, &resp); err != nil {
		return BootstrapResponse{}, err
	}

	return resp, nil
}

func (r *repository) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	url := r.baseURL + path

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while building server request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiToken))

	res, err := r.client.Do(req)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("server is unreachable")
		return errors.New(http.StatusServiceUnavailable, status.INTERNAL_SERVER_ERROR, "server is unreachable")
	}

	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while reading server response")
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return errors.New(res.StatusCode, env.Status, env.Message)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while reading server response")
		}
	}

	return nil
}

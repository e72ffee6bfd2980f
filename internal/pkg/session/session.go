package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tsel-ticketmaster/tm-gate/pkg/errors"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type contextKey struct{}

// DeviceAccount is the registered gate device behind an authenticated
// request. Registration itself is owned by the device-management
// service; this store only reads what it wrote.
type DeviceAccount struct {
	DeviceID string `json:"device_id"`
	TenantID string `json:"tenant_id"`
	StoreID  string `json:"store_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

type Store interface {
	Get(ctx context.Context, deviceID string) (DeviceAccount, error)
}

type redisSessionStore struct {
	logger *logrus.Logger
	client *goredis.Client
}

func NewRedisSessionStore(logger *logrus.Logger, client *goredis.Client) Store {
	return &redisSessionStore{
		logger: logger,
		client: client,
	}
}

// Get implements Store.
func (s *redisSessionStore) Get(ctx context.Context, deviceID string) (DeviceAccount, error) {
	buff, err := s.client.Get(ctx, fmt.Sprintf("tm-gate:device-session:%s", deviceID)).Bytes()
	if err == goredis.Nil {
		return DeviceAccount{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "device session was not found")
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return DeviceAccount{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting device session")
	}

	var acc DeviceAccount
	if err := json.Unmarshal(buff, &acc); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return DeviceAccount{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting device session")
	}

	return acc, nil
}

// ContextWithAccount attaches the device account to the context.
func ContextWithAccount(ctx context.Context, acc DeviceAccount) context.Context {
	return context.WithValue(ctx, contextKey{}, acc)
}

// GetAccountFromCtx returns the device account attached by the session
// middleware.
func GetAccountFromCtx(ctx context.Context) (DeviceAccount, error) {
	acc, ok := ctx.Value(contextKey{}).(DeviceAccount)
	if !ok {
		return DeviceAccount{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "device account was not found on the request context")
	}

	return acc, nil
}

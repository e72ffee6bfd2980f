package redis

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/tsel-ticketmaster/tm-gate/config"
)

var (
	client *redis.Client
	once   sync.Once
)

// GetClient returns the process-wide redis client, opening it on first
// use from the application config.
func GetClient() *redis.Client {
	once.Do(func() {
		c := config.Get()

		client = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	})

	return client
}

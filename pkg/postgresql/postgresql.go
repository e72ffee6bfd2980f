package postgresql

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/tsel-ticketmaster/tm-gate/config"
)

var (
	db   *sql.DB
	once sync.Once
)

// GetDatabase returns the process-wide postgres handle, opening it on
// first use from the application config.
func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get()

		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.Name, c.Postgres.SSLMode,
		)

		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			panic(err)
		}

		db.SetMaxOpenConns(c.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(c.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(30 * time.Minute)
	})

	return db
}

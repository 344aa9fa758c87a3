package mysql

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"orderboard/internal/config"
)

const pingTimeout = 5 * time.Second

// DSN builds the driver DSN. ClientFoundRows makes UPDATE report matched rows
// rather than changed rows, so rewriting an unchanged status is not a miss.
// The session runs in UTC so CURRENT_TIMESTAMP matches Loc on read-back.
func DSN(cfg config.DatabaseConfig, multiStatements bool) string {
	c := gomysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true
	c.MultiStatements = multiStatements
	c.Timeout = pingTimeout
	c.Params = map[string]string{"time_zone": "'+00:00'"}
	return c.FormatDSN()
}

func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg, false))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

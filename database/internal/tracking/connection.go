package tracking

import (
	"context"
	"database/sql"
	"time"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/types"
	"github.com/gaborage/querykit/logger"
)

// Connection wraps a types.Interface and tracks every operation it delegates.
// Transactions and prepared statements obtained from it are tracked as well.
type Connection struct {
	conn types.Interface
	obs  observer
}

var _ types.Interface = (*Connection)(nil)

// NewConnection wraps conn. The vendor is taken from conn.DatabaseType() and the
// tracking settings from cfg, which may be nil.
func NewConnection(conn types.Interface, log logger.Logger, cfg *config.DatabaseConfig) *Connection {
	return &Connection{
		conn: conn,
		obs: observer{tc: &Context{
			Logger:   log,
			Vendor:   conn.DatabaseType(),
			Settings: NewSettings(cfg),
		}},
	}
}

// SetServerInfo records the server address, port and database name reported on spans.
// Call it before the connection is shared.
func (c *Connection) SetServerInfo(address string, port int, namespace string) {
	c.obs.tc.ServerAddress = address
	c.obs.tc.ServerPort = port
	c.obs.tc.Namespace = namespace
}

// Unwrap returns the wrapped connection.
func (c *Connection) Unwrap() types.Interface { return c.conn }

func (c *Connection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.conn.Query(ctx, query, args...)
	c.obs.query(ctx, query, args, start, err)
	return rows, err
}

func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) types.Row {
	start := time.Now()
	return c.obs.row(ctx, c.conn.QueryRow(ctx, query, args...), query, args, start)
}

func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.conn.Exec(ctx, query, args...)
	c.obs.exec(ctx, query, args, start, res, err)
	return res, err
}

func (c *Connection) Prepare(ctx context.Context, query string) (types.Statement, error) {
	start := time.Now()
	stmt, err := c.conn.Prepare(ctx, query)
	c.obs.call(ctx, KindPrepare, query, start, err)
	if err != nil {
		return nil, err
	}
	return c.obs.statement(stmt, query), nil
}

func (c *Connection) Begin(ctx context.Context) (types.Tx, error) {
	return c.BeginTx(ctx, nil)
}

func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (types.Tx, error) {
	start := time.Now()
	var (
		tx  types.Tx
		err error
	)
	if opts == nil {
		tx, err = c.conn.Begin(ctx)
	} else {
		tx, err = c.conn.BeginTx(ctx, opts)
	}
	c.obs.call(ctx, KindBegin, "", start, err)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx, obs: c.obs}, nil
}

func (c *Connection) Health(ctx context.Context) error { return c.conn.Health(ctx) }

func (c *Connection) Stats() (map[string]any, error) { return c.conn.Stats() }

func (c *Connection) Close() error { return c.conn.Close() }

func (c *Connection) DatabaseType() string { return c.conn.DatabaseType() }

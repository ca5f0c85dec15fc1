package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// loggingConnector implements driver.Connector by opening the sqlite3 driver
// and wrapping the connection to log all SQL.
type loggingConnector struct {
	dsn    string
	logger *slog.Logger
}

// loggingConn wraps driver.Conn to provide statement logging.
type loggingConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

// loggingStmt wraps driver.Stmt to log Exec/Query and their args.
type loggingStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

// NewLoggingConnector returns a driver.Connector that logs all SQL (query and args)
// using the given logger. Use sql.OpenDB(connector) to get a *sql.DB that logs.
// If logger is nil, slog.Default() is used.
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, logger: logger}, nil
}

// Driver implements driver.Connector.
func (c *loggingConnector) Driver() driver.Driver {
	return &loggingDriver{}
}

// Connect implements driver.Connector.
func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	underlying := &sqlite3.SQLiteDriver{}
	conn, err := underlying.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, logger: c.logger}, nil
}

// loggingDriver satisfies Connector.Driver(); opening is done via OpenDB(connector).
type loggingDriver struct{}

// Open implements driver.Driver; opening via this driver is not supported (use OpenDB(connector)).
func (d *loggingDriver) Open(name string) (driver.Conn, error) {
	return nil, fmt.Errorf("aqdash-sqlite-log: use sql.OpenDB(NewLoggingConnector(...)) instead of sql.Open")
}

// Prepare implements driver.Conn.
func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := prep.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
	}
	return c.Prepare(query)
}

// Close implements driver.Conn.
func (c *loggingConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
func (c *loggingConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – required when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

// BeginTx implements driver.ConnBeginTx.
func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

// ExecContext implements driver.ExecerContext so that multi-statement scripts
// (migrations) run whole instead of being cut to their first statement by Prepare.
func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := execer.ExecContext(ctx, query, args)
	logQuery(c.logger, "exec", query, namedValuesToSlice(args), start, err)
	return res, err
}

// Exec implements driver.Stmt.
func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtExecContext
	res, err := s.stmt.Exec(args)
	logQuery(s.logger, "exec", s.query, args, start, err)
	return res, err
}

// ExecContext implements driver.StmtExecContext.
func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var res driver.Result
	var err error
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		res, err = execCtx.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtExecContext
		res, err = s.stmt.Exec(namedValuesToValues(args))
	}
	logQuery(s.logger, "exec", s.query, namedValuesToSlice(args), start, err)
	return res, err
}

// Query implements driver.Stmt.
func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtQueryContext
	rows, err := s.stmt.Query(args)
	logQuery(s.logger, "query", s.query, args, start, err)
	return rows, err
}

// QueryContext implements driver.StmtQueryContext.
func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var rows driver.Rows
	var err error
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryCtx.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtQueryContext
		rows, err = s.stmt.Query(namedValuesToValues(args))
	}
	logQuery(s.logger, "query", s.query, namedValuesToSlice(args), start, err)
	return rows, err
}

// Close implements driver.Stmt.
func (s *loggingStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt (optional); -1 means unknown.
func (s *loggingStmt) NumInput() int {
	if n, ok := s.stmt.(interface{ NumInput() int }); ok {
		return n.NumInput()
	}
	return -1
}

func logQuery(logger *slog.Logger, op, query string, args any, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", query,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.Debug("sql", attrs...)
}

func namedValuesToSlice(args []driver.NamedValue) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		if a.Name != "" {
			out[i] = a.Name + "=" + formatArg(a.Value)
		} else {
			out[i] = formatArg(a.Value)
		}
	}
	return out
}

func namedValuesToValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArg(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

package iron

import (
	"database/sql"

	"golang.org/x/exp/slog"

	"github.com/nlimpid/ironsql/executor"
	"github.com/nlimpid/ironsql/naming"
)

// Option configures a Handle.
type Option func(*settings)

type settings struct {
	naming       naming.Strategy
	log          *slog.Logger
	logParams    bool
	workers      int64
	expectedSize int
	txOpts       *sql.TxOptions
	driver       string
}

func defaults() *settings {
	return &settings{
		naming:  naming.SnakeCase,
		log:     executor.Discard(),
		workers: 16,
	}
}

// WithNamingStrategy sets how model field names map to column names.
// The default is naming.SnakeCase.
func WithNamingStrategy(s naming.Strategy) Option {
	return func(c *settings) { c.naming = s }
}

// WithLogger routes statement and transaction logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *settings) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLogParams includes parameter values in statement logs.
func WithLogParams(on bool) Option {
	return func(c *settings) { c.logParams = on }
}

// WithWorkers caps how many operations of the Completable view may be in
// flight against the connection at once. Further operations wait for a
// slot.
func WithWorkers(n int) Option {
	return func(c *settings) {
		if n > 0 {
			c.workers = int64(n)
		}
	}
}

// WithExpectedSize pre-allocates row capacity for reads when the
// approximate row count is known ahead of time.
func WithExpectedSize(n int) Option {
	return func(c *settings) { c.expectedSize = n }
}

// WithTxOptions sets the isolation level and read-only flag transactions
// begin with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(c *settings) { c.txOpts = opts }
}

// WithDriver opens the target with the named database/sql driver, passing
// the target through as its data source name.
func WithDriver(name string) Option {
	return func(c *settings) { c.driver = name }
}

func (c *settings) executor() *executor.Executor {
	return executor.New(
		executor.WithNaming(c.naming),
		executor.WithLogger(c.log),
		executor.WithLogParams(c.logParams),
		executor.WithExpectedSize(c.expectedSize),
	)
}

// Package executor runs one parameterised statement on a connection and
// materialises its outcome as a scanner.Result.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"reflect"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/naming"
	"github.com/nlimpid/ironsql/opt"
	"github.com/nlimpid/ironsql/scanner"
)

// Conn is the part of a connection a statement needs. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithNaming sets the strategy stamped on every Result.
func WithNaming(s naming.Strategy) Option {
	return func(e *Executor) { e.naming = s }
}

// WithLogger sets the logger statements are reported to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLogParams includes parameter values in statement logs.
func WithLogParams(on bool) Option {
	return func(e *Executor) { e.logParams = on }
}

// WithExpectedSize pre-sizes the row buffer of every read.
func WithExpectedSize(n int) Option {
	return func(e *Executor) { e.expectedSize = n }
}

// Executor runs statements. It holds no connection state and is safe for
// concurrent use.
type Executor struct {
	naming       naming.Strategy
	log          *slog.Logger
	logParams    bool
	expectedSize int
}

// New returns an Executor using snake_case naming and a discarding logger.
func New(opts ...Option) *Executor {
	e := &Executor{
		naming: naming.SnakeCase,
		log:    Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Naming returns the strategy stamped on results.
func (e *Executor) Naming() naming.Strategy { return e.naming }

// Logger returns the configured logger.
func (e *Executor) Logger() *slog.Logger { return e.log }

// Validate checks that params supplies exactly one value per placeholder in
// query. A query the placeholder scanner cannot parse is left to the driver.
func Validate(query string, params []any) error {
	want, err := CountPlaceholders(query)
	if err != nil {
		return nil
	}
	if want != len(params) {
		return &dberr.ParameterCountError{Query: query, Want: want, Got: len(params)}
	}
	return nil
}

// Execute runs query with params on conn. Reads return their rows; writes
// return the affected-row count and, when the driver reports one, the
// generated key. Once the statement has been handed to the driver it runs to
// completion even if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, conn Conn, query string, params ...any) (*scanner.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Validate(query, params); err != nil {
		return nil, err
	}
	args, err := normalize(params)
	if err != nil {
		return nil, &dberr.DriverError{Op: "bind", Query: query, Err: err}
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	var res *scanner.Result
	if IsRead(query) {
		res, err = e.query(ctx, conn, query, args)
	} else {
		res, err = e.exec(ctx, conn, query, args)
	}
	e.report(ctx, query, args, time.Since(start), res, err)
	if err != nil {
		return nil, err
	}
	res.Naming = e.naming
	return res, nil
}

func (e *Executor) query(ctx context.Context, conn Conn, query string, args []any) (*scanner.Result, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &dberr.DriverError{Op: "query", Query: query, Err: err}
	}
	defer rows.Close()

	res, err := scanner.ReadRows(rows, scanner.WithExpectedSize(e.expectedSize))
	if err != nil {
		return nil, &dberr.DriverError{Op: "read", Query: query, Err: err}
	}
	return res, nil
}

func (e *Executor) exec(ctx context.Context, conn Conn, query string, args []any) (*scanner.Result, error) {
	r, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &dberr.DriverError{Op: "exec", Query: query, Err: err}
	}
	res := &scanner.Result{}
	if n, err := r.RowsAffected(); err == nil {
		res.Affected = n
	}
	if id, err := r.LastInsertId(); err == nil {
		res.InsertID = opt.Some(id)
	}
	return res, nil
}

func (e *Executor) report(ctx context.Context, query string, args []any, took time.Duration, res *scanner.Result, err error) {
	if !e.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{
		slog.String("query", query),
		slog.Duration("took", took),
	}
	if e.logParams {
		attrs = append(attrs, slog.Any("params", args))
	} else {
		attrs = append(attrs, slog.Int("params", len(args)))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		e.log.LogAttrs(ctx, slog.LevelDebug, "statement failed", attrs...)
		return
	}
	attrs = append(attrs, slog.Int("rows", res.Len()), slog.Int64("affected", res.Affected))
	e.log.LogAttrs(ctx, slog.LevelDebug, "statement executed", attrs...)
}

// normalize resolves driver.Valuer parameters, opt.Option among them, to
// their plain values.
func normalize(params []any) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		v, err := valueOf(p)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func valueOf(p any) (any, error) {
	for depth := 0; depth < 8; depth++ {
		vr, ok := p.(driver.Valuer)
		if !ok {
			return p, nil
		}
		if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		v, err := vr.Value()
		if err != nil {
			return nil, err
		}
		p = v
	}
	return p, nil
}

var readKeywords = []string{
	"SELECT", "VALUES", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA", "TABLE", "FROM", "SUMMARIZE",
}

// IsRead reports whether query produces rows. Statements are classified by
// their leading keyword, or for WITH by the statement after the CTE list;
// writes with a RETURNING clause count as reads.
func IsRead(query string) bool {
	head := strings.ToUpper(leadingWord(query))
	if head == "WITH" {
		main, rest, ok := afterCTEs(query)
		if !ok {
			return true
		}
		head, query = strings.ToUpper(main), rest
	}
	for _, kw := range readKeywords {
		if head == kw {
			return true
		}
	}
	return hasReturning(query)
}

// cteMainKeywords can start the statement that follows a CTE list.
var cteMainKeywords = map[string]bool{
	"SELECT": true, "VALUES": true, "TABLE": true, "FROM": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
}

// afterCTEs finds the first statement keyword outside parentheses in a WITH
// query and returns it with the text that follows it.
func afterCTEs(q string) (keyword, rest string, ok bool) {
	depth, i := 0, 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j, err := skipQuoted(q, i+1, c)
			if err != nil {
				return "", "", false
			}
			i = j
		case c == '$':
			j, quoted, err := skipDollarQuoted(q, i)
			if err != nil {
				return "", "", false
			}
			if !quoted {
				j = i + 1
			}
			i = j
		case strings.HasPrefix(q[i:], "--"):
			i = skipLineComment(q, i+2)
		case strings.HasPrefix(q[i:], "/*"):
			j, err := skipBlockComment(q, i+2)
			if err != nil {
				return "", "", false
			}
			i = j
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			j := i
			for j < len(q) && isWordByte(q[j]) {
				j++
			}
			if depth == 0 && cteMainKeywords[strings.ToUpper(q[i:j])] {
				return q[i:j], q[j:], true
			}
			i = j
		default:
			i++
		}
	}
	return "", "", false
}

func leadingWord(q string) string {
	i := 0
	for i < len(q) {
		switch c := q[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ';':
			i++
		case strings.HasPrefix(q[i:], "--"):
			i = skipLineComment(q, i+2)
		case strings.HasPrefix(q[i:], "/*"):
			j, err := skipBlockComment(q, i+2)
			if err != nil {
				return ""
			}
			i = j
		default:
			j := i
			for j < len(q) && isWordByte(q[j]) {
				j++
			}
			return q[i:j]
		}
	}
	return ""
}

// hasReturning looks for a RETURNING keyword outside quotes and comments.
func hasReturning(q string) bool {
	i := 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j, err := skipQuoted(q, i+1, c)
			if err != nil {
				return false
			}
			i = j
		case strings.HasPrefix(q[i:], "--"):
			i = skipLineComment(q, i+2)
		case strings.HasPrefix(q[i:], "/*"):
			j, err := skipBlockComment(q, i+2)
			if err != nil {
				return false
			}
			i = j
		case isWordByte(c):
			j := i
			for j < len(q) && isWordByte(q[j]) {
				j++
			}
			if strings.EqualFold(q[i:j], "RETURNING") {
				return true
			}
			i = j
		default:
			i++
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

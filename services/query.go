package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"banks-etl/models"
	"banks-etl/storage"
	"banks-etl/utils"
)

// QueryRunner executes literal SQL and prints the query and its result.
// Queries are trusted, caller-built strings; nothing is escaped.
type QueryRunner struct {
	store  storage.Querier
	out    io.Writer
	logger *utils.Logger
}

// NewQueryRunner creates a QueryRunner printing to out.
func NewQueryRunner(store storage.Querier, out io.Writer, logger *utils.Logger) *QueryRunner {
	return &QueryRunner{store: store, out: out, logger: logger}
}

// Run executes query, prints it, and returns the result.
func (q *QueryRunner) Run(ctx context.Context, query string) (*models.QueryResult, error) {
	fmt.Fprintln(q.out, query)

	res, err := q.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("[query] %q returned %d rows", query, len(res.Rows))

	Print(q.out, res)
	return res, nil
}

// Print writes res as an aligned table with a leading 0-based row index.
func Print(w io.Writer, res *models.QueryResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(res.Columns, "\t"))
	for i, row := range res.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		fmt.Fprintf(tw, "%d\t%s\t\n", i, strings.Join(cells, "\t"))
	}
	if len(res.Rows) == 0 {
		fmt.Fprintln(tw, "(no rows)\t")
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

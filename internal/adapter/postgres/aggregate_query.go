package postgres

import (
	"fmt"
	"strings"

	"github.com/user/perfwatch/internal/entity"
)

// aggregateSource is the relation an aggregate query reads and how it buckets it.
type aggregateSource struct {
	relation   string
	timeColumn string
	trunc      string
	// rollup relations expose avg_* columns instead of raw metric columns.
	rollup bool
}

var metricColumns = []string{"score", "response_time", "fcp", "si", "lcp", "tbt", "cls"}

// rollupSource picks the cheapest relation that can answer the period.
func rollupSource(period entity.Period) (aggregateSource, error) {
	switch period {
	case entity.PeriodHourly:
		return rawSource(period)
	case entity.PeriodDaily:
		return aggregateSource{relation: "metrics_daily", timeColumn: "bucket", trunc: "day", rollup: true}, nil
	case entity.PeriodWeekly:
		return aggregateSource{relation: "metrics_weekly", timeColumn: "bucket", trunc: "week", rollup: true}, nil
	case entity.PeriodMonthly:
		return aggregateSource{relation: "metrics_daily", timeColumn: "bucket", trunc: "month", rollup: true}, nil
	}
	return aggregateSource{}, fmt.Errorf("unsupported period %q", period)
}

// rawSource answers any period straight from the hypertable.
func rawSource(period entity.Period) (aggregateSource, error) {
	trunc, ok := map[entity.Period]string{
		entity.PeriodHourly:  "hour",
		entity.PeriodDaily:   "day",
		entity.PeriodWeekly:  "week",
		entity.PeriodMonthly: "month",
	}[period]
	if !ok {
		return aggregateSource{}, fmt.Errorf("unsupported period %q", period)
	}
	return aggregateSource{relation: "metrics", timeColumn: "time", trunc: trunc}, nil
}

// buildAverageQuery renders the bucketed AVG query. Identifiers come from
// aggregateSource and the scope kind only; user input is always a parameter.
func buildAverageQuery(src aggregateSource, scope entity.AggregateScope, r entity.TimeRange) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT date_trunc('%s', m.%s) AS period_start", src.trunc, src.timeColumn)
	for _, col := range metricColumns {
		source := col
		if src.rollup {
			source = "avg_" + col
		}
		fmt.Fprintf(&b, ",\n\tAVG(m.%s)::float8 AS avg_%s", source, col)
	}
	fmt.Fprintf(&b, "\nFROM %s m", src.relation)

	args := []any{r.Start, r.End}
	where := []string{
		fmt.Sprintf("m.%s >= $1", src.timeColumn),
		fmt.Sprintf("m.%s <= $2", src.timeColumn),
	}

	switch scope.Kind {
	case entity.ScopeGlobal, "":
	case entity.ScopePage:
		args = append(args, scope.Value)
		where = append(where, "m.page_id = $3::uuid")
	case entity.ScopeChannel:
		b.WriteString("\nJOIN pages p ON p.id = m.page_id")
		args = append(args, scope.Value)
		where = append(where, "p.channel_id = $3::uuid")
	case entity.ScopeProvider:
		b.WriteString("\nJOIN pages p ON p.id = m.page_id")
		args = append(args, scope.Value)
		where = append(where, "p.provider_id = $3::uuid")
	case entity.ScopeTheme:
		b.WriteString("\nJOIN pages p ON p.id = m.page_id\nJOIN channels c ON c.id = p.channel_id")
		args = append(args, scope.Value)
		where = append(where, "c.theme = $3")
	default:
		return "", nil, fmt.Errorf("unsupported scope %q", scope.Kind)
	}

	fmt.Fprintf(&b, "\nWHERE %s", strings.Join(where, " AND "))
	b.WriteString("\nGROUP BY period_start\nORDER BY period_start ASC;")
	return b.String(), args, nil
}

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourorg/motor-stats/internal/types"
)

// Querier is satisfied by *Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries resolves period markers and aggregates from ingested tables.
type Queries struct {
	q Querier
}

func NewQueries(q Querier) *Queries { return &Queries{q: q} }

var periodTables = map[string]bool{Cars.Name: true, COE.Name: true, Deregistrations.Name: true}

// LatestMonth returns the most recent month in table, or "" when empty.
func (r *Queries) LatestMonth(ctx context.Context, table string) (string, error) {
	if !periodTables[table] {
		return "", fmt.Errorf("%w: unknown table %q", ErrValidation, table)
	}
	q := `select coalesce(max(month), '') from ` + pgx.Identifier{table}.Sanitize()
	var month string
	if err := r.q.QueryRow(ctx, q).Scan(&month); err != nil {
		return "", err
	}
	return month, nil
}

// LatestBiddingPeriod returns the latest month and its highest bidding round.
func (r *Queries) LatestBiddingPeriod(ctx context.Context) (types.PeriodMarker, error) {
	const q = `select month, max(bidding_no) from coe
where month = (select max(month) from coe)
group by month`
	var m types.PeriodMarker
	err := r.q.QueryRow(ctx, q).Scan(&m.Month, &m.BiddingNo)
	if errors.Is(mapRowErr(err), ErrNotFound) {
		return types.PeriodMarker{}, nil
	}
	if err != nil {
		return types.PeriodMarker{}, err
	}
	return m, nil
}

// BiddingRounds counts distinct bidding exercises held in month.
func (r *Queries) BiddingRounds(ctx context.Context, month string) (int, error) {
	const q = `select count(distinct bidding_no) from coe where month = $1`
	var n int
	if err := r.q.QueryRow(ctx, q, month).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// RegistrationsByFuel sums registrations per fuel type, largest first.
func (r *Queries) RegistrationsByFuel(ctx context.Context, month string) ([]types.FuelTotal, error) {
	const q = `select fuel_type, sum(number)::bigint from cars where month = $1
group by fuel_type order by 2 desc, 1 asc`
	rows, err := r.q.Query(ctx, q, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.FuelTotal
	for rows.Next() {
		var f types.FuelTotal
		if err := rows.Scan(&f.FuelType, &f.Total); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// TopMakes returns the n makes with most registrations for one fuel type.
func (r *Queries) TopMakes(ctx context.Context, month, fuelType string, n int) ([]types.MakeTotal, error) {
	if n <= 0 {
		n = 5
	}
	const q = `select make, sum(number)::bigint from cars
where month = $1 and fuel_type = $2
group by make having sum(number) > 0
order by 2 desc, 1 asc limit $3`
	return r.makeTotals(ctx, q, month, fuelType, n)
}

func (r *Queries) makeTotals(ctx context.Context, q string, args ...any) ([]types.MakeTotal, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.MakeTotal
	for rows.Next() {
		var m types.MakeTotal
		if err := rows.Scan(&m.Make, &m.Total); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// COEResults returns every bidding result of month ordered by round and class.
func (r *Queries) COEResults(ctx context.Context, month string) ([]types.COEResult, error) {
	const q = `select month, bidding_no, vehicle_class, quota, bids_success, bids_received, premium
from coe where month = $1 order by bidding_no, vehicle_class`
	rows, err := r.q.Query(ctx, q, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.COEResult
	for rows.Next() {
		var c types.COEResult
		if err := rows.Scan(&c.Month, &c.BiddingNo, &c.VehicleClass, &c.Quota, &c.BidsSuccess, &c.BidsReceived, &c.Premium); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RegistrationAggregate builds the per-fuel breakdown with top makes, one
// query per fuel type.
func (r *Queries) RegistrationAggregate(ctx context.Context, month string, topN int) (types.Aggregate, error) {
	fuels, err := r.RegistrationsByFuel(ctx, month)
	if err != nil {
		return types.Aggregate{}, err
	}
	agg := types.Aggregate{Dataset: types.DatasetRegistrations, Month: month}
	for _, f := range fuels {
		top, err := r.TopMakes(ctx, month, f.FuelType, topN)
		if err != nil {
			return types.Aggregate{}, fmt.Errorf("top makes %s: %w", f.FuelType, err)
		}
		agg.Total += f.Total
		agg.ByFuel = append(agg.ByFuel, types.FuelBreakdown{FuelType: f.FuelType, Total: f.Total, TopMakes: top})
	}
	return agg, nil
}

package db

// ConflictPolicy decides what happens when a row's natural key already exists.
type ConflictPolicy int

const (
	// DoNothing keeps the stored row; used for append-only ingestion.
	DoNothing ConflictPolicy = iota
	// DoUpdate overwrites UpdateColumns of the stored row.
	DoUpdate
)

// Table describes an insert target. Record.Values must follow Columns order.
type Table struct {
	Name            string
	Columns         []string
	ConflictColumns []string
	OnConflict      ConflictPolicy
	UpdateColumns   []string
}

// Record is one row to persist.
type Record interface {
	Values() []any
}

var (
	Cars = Table{
		Name:            "cars",
		Columns:         []string{"month", "make", "fuel_type", "vehicle_type", "number"},
		ConflictColumns: []string{"month", "make", "fuel_type", "vehicle_type"},
	}
	COE = Table{
		Name:            "coe",
		Columns:         []string{"month", "bidding_no", "vehicle_class", "quota", "bids_success", "bids_received", "premium"},
		ConflictColumns: []string{"month", "bidding_no", "vehicle_class"},
	}
	Deregistrations = Table{
		Name:            "deregistrations",
		Columns:         []string{"month", "make", "category_a", "category_b", "category_c", "category_d", "category_e", "taxi", "total"},
		ConflictColumns: []string{"month", "make"},
	}
	Posts = Table{
		Name:            "posts",
		Columns:         []string{"id", "month", "data_type", "title", "slug", "content", "model", "created_at", "updated_at"},
		ConflictColumns: []string{"month", "data_type"},
		OnConflict:      DoUpdate,
		UpdateColumns:   []string{"title", "slug", "content", "model", "updated_at"},
	}
)

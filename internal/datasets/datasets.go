package datasets

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/fetch"
	"github.com/yourorg/motor-stats/internal/types"
)

// ParseFunc turns the selected source file into table records.
type ParseFunc func(f fetch.ExtractedFile, log *zap.Logger) ([]db.Record, error)

// Definition binds a dataset name to its table and parser.
type Definition struct {
	Name  string
	Table db.Table
	Parse ParseFunc
}

var registry = map[string]Definition{
	types.DatasetRegistrations:   {Name: types.DatasetRegistrations, Table: db.Cars, Parse: ParseRegistrations},
	types.DatasetCOE:             {Name: types.DatasetCOE, Table: db.COE, Parse: ParseCOE},
	types.DatasetDeregistrations: {Name: types.DatasetDeregistrations, Table: db.Deregistrations, Parse: ParseDeregistrations},
}

// Lookup returns the definition of a known dataset.
func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown dataset %q", name)
	}
	return d, nil
}

// Names lists the known datasets in a stable order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func records[T db.Record](xs []T) []db.Record {
	out := make([]db.Record, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

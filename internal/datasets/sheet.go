package datasets

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/fetch"
	"github.com/yourorg/motor-stats/internal/models"
	"github.com/yourorg/motor-stats/internal/normalize"
	"github.com/yourorg/motor-stats/internal/parser"
)

var errNoPeriodSheets = errors.New("no period sheets")

// DeregistrationLayout is the shape of each monthly sheet: a title row, a
// header row, then one row per make followed by footnotes.
var DeregistrationLayout = parser.SheetLayout{
	HeaderRows:      2,
	Columns:         []string{"serial", "make", "category_a", "category_b", "category_c", "category_d", "category_e", "taxi", "total"},
	TextColumns:     []string{"make"},
	NullableColumns: []string{"category_a", "category_b", "category_c", "category_d", "category_e", "taxi"},
	EntityColumn:    "make",
	MaxEntityLen:    50,
}

// ParseDeregistrations reads every monthly sheet of the workbook. Sheets whose
// names are not periods (notes, summaries) are skipped.
func ParseDeregistrations(f fetch.ExtractedFile, log *zap.Logger) ([]db.Record, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, err
	}
	wb, err := parser.OpenWorkbook(data)
	if err != nil {
		return nil, parser.Malformed(f.Name, err)
	}
	var out []db.Record
	periods := 0
	for _, name := range wb.SheetNames() {
		if _, err := parser.ResolvePeriod(name); err != nil {
			log.Debug("skipping sheet", zap.String("sheet", name), zap.Error(err))
			continue
		}
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		res, err := parser.ParseSheet(name, rows, DeregistrationLayout)
		if err != nil {
			return nil, parser.Malformed(f.Name, err)
		}
		for _, r := range res.Rows {
			out = append(out, models.Deregistration{
				Month:     r.String("month"),
				Make:      normalize.Make(r.String("make")),
				CategoryA: r.NullableInt("category_a"),
				CategoryB: r.NullableInt("category_b"),
				CategoryC: r.NullableInt("category_c"),
				CategoryD: r.NullableInt("category_d"),
				CategoryE: r.NullableInt("category_e"),
				Taxi:      r.NullableInt("taxi"),
				Total:     r.Int("total"),
			})
		}
		periods++
		log.Info("parsed sheet", zap.String("period", res.Period), zap.Int("records", len(res.Rows)), zap.Int("skipped", res.Skipped))
	}
	if periods == 0 {
		return nil, parser.Malformed(f.Name, errNoPeriodSheets)
	}
	return out, nil
}

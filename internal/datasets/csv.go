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

var errMissingMonth = errors.New("missing month")

var registrationOpts = parser.CSVOptions{
	Rename: map[string]string{"type": "vehicle_type", "fuel": "fuel_type"},
	Transform: map[string]parser.Transform{
		"number": parser.Int,
	},
}

// ParseRegistrations reads the monthly new-registrations CSV.
func ParseRegistrations(f fetch.ExtractedFile, log *zap.Logger) ([]db.Record, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	recs, err := parser.ParseCSV(rc, registrationOpts, func(r parser.Row) (models.CarRegistration, error) {
		month := r.String("month")
		if month == "" {
			return models.CarRegistration{}, errMissingMonth
		}
		mk, err := normalize.MakeStrict(r.String("make"))
		if err != nil {
			return models.CarRegistration{}, fmt.Errorf("make: %w", err)
		}
		return models.CarRegistration{
			Month:       month,
			Make:        mk,
			FuelType:    normalize.Label(r.String("fuel_type")),
			VehicleType: normalize.Label(r.String("vehicle_type")),
			Number:      r.Int("number"),
		}, nil
	})
	if err != nil {
		return nil, parser.Malformed(f.Name, err)
	}
	log.Info("parsed registrations", zap.String("file", f.Name), zap.Int("records", len(recs)))
	return records(recs), nil
}

var coeOpts = parser.CSVOptions{
	Transform: map[string]parser.Transform{
		"bidding_no":    parser.Int,
		"quota":         parser.Int,
		"bids_success":  parser.Int,
		"bids_received": parser.Int,
		"premium":       parser.Int,
	},
}

// ParseCOE reads the bidding results CSV.
func ParseCOE(f fetch.ExtractedFile, log *zap.Logger) ([]db.Record, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	recs, err := parser.ParseCSV(rc, coeOpts, func(r parser.Row) (models.COEResult, error) {
		month := r.String("month")
		if month == "" {
			return models.COEResult{}, errMissingMonth
		}
		return models.COEResult{
			Month:        month,
			BiddingNo:    int(r.Int("bidding_no")),
			VehicleClass: normalize.Label(r.String("vehicle_class")),
			Quota:        r.Int("quota"),
			BidsSuccess:  r.Int("bids_success"),
			BidsReceived: r.Int("bids_received"),
			Premium:      r.Int("premium"),
		}, nil
	})
	if err != nil {
		return nil, parser.Malformed(f.Name, err)
	}
	log.Info("parsed coe results", zap.String("file", f.Name), zap.Int("records", len(recs)))
	return records(recs), nil
}

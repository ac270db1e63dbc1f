package geo

import (
	"context"
	"errors"
	"time"

	"github.com/banking/fraud-risk-service/internal/config"
	"github.com/banking/fraud-risk-service/internal/domain"
	"github.com/banking/fraud-risk-service/internal/pkg/logger"

	"github.com/google/uuid"
)

// LocationHistory answers where an account was last seen before a given
// instant. The account profile client implements it.
type LocationHistory interface {
	LastKnownLocation(ctx context.Context, accountID uuid.UUID, before time.Time) (*domain.Location, error)
}

// Validator computes the impossible-travel signal: whether reaching the
// transaction's location from the account's previous one would require
// faster-than-airliner travel.
type Validator struct {
	history LocationHistory
	cfg     config.GeoConfig
	log     *logger.Logger
}

// NewValidator creates a geographic validator.
func NewValidator(history LocationHistory, cfg config.GeoConfig, log *logger.Logger) *Validator {
	return &Validator{
		history: history,
		cfg:     cfg,
		log:     log.Named("geo_validator"),
	}
}

// Validate computes the geographic context for a transaction. Transactions
// without a location, and accounts without a prior observation, yield the
// normal context. History lookup failures other than a confirmed miss
// propagate.
func (v *Validator) Validate(ctx context.Context, tx *domain.Transaction) (domain.GeographicContext, error) {
	if !tx.HasLocation() {
		return domain.NormalGeographicContext(), nil
	}

	previous, err := v.history.LastKnownLocation(ctx, tx.AccountID, tx.Timestamp)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.NormalGeographicContext(), nil
		}
		return domain.GeographicContext{}, err
	}
	if previous == nil {
		return domain.NormalGeographicContext(), nil
	}

	current := *tx.Location
	distance := previous.DistanceKm(current)
	elapsed := tx.Timestamp.Sub(previous.ObservedAt)

	result := domain.GeographicContext{
		DistanceKm:       distance,
		PreviousLocation: previous,
		CurrentLocation:  &current,
	}

	if elapsed <= 0 {
		// Simultaneous or out-of-order observations carry no speed; two
		// sightings far apart at the same instant are still impossible.
		result.ImpossibleTravel = distance > v.cfg.ZeroElapsedDistanceKm
	} else {
		result.RequiredSpeedKmh = distance / elapsed.Hours()
		result.ImpossibleTravel = result.RequiredSpeedKmh > v.cfg.MaxSpeedKmh
	}

	if result.ImpossibleTravel {
		v.log.ImpossibleTravelDetected(tx.AccountID.String(), result.DistanceKm, result.RequiredSpeedKmh)
	}

	return result, nil
}

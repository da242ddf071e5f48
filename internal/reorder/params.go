package reorder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProductNotFound is returned by Explain when the product is absent from the batch.
var ErrProductNotFound = errors.New("product not found")

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Params are the caller-supplied request parameters for one computation.
type Params struct {
	Strategy            Strategy `json:"strategy"`
	HorizonDaysOverride *int     `json:"horizon_days_override,omitempty"`
	IncludeZeroVelocity bool     `json:"include_zero_velocity"`
	// ExcludeNoSupplier drops products flagged missing_supplier. By default they are kept.
	ExcludeNoSupplier bool     `json:"exclude_no_supplier"`
	MinDaysCover      *float64 `json:"min_days_cover,omitempty"`
	MaxDaysCover      *float64 `json:"max_days_cover,omitempty"`
}

// ParseStrategy maps a user-supplied string to a Strategy. Empty means latest.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyLatest:
		return StrategyLatest, nil
	case StrategyConservative:
		return StrategyConservative, nil
	}
	return "", &ValidationError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", raw)}
}

// Validate rejects malformed parameters before any computation starts.
func (p Params) Validate() error {
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	if p.HorizonDaysOverride != nil && *p.HorizonDaysOverride <= 0 {
		return &ValidationError{Field: "horizon_days_override", Message: "must be a positive integer"}
	}
	if err := validateDaysCover("min_days_cover", p.MinDaysCover); err != nil {
		return err
	}
	if err := validateDaysCover("max_days_cover", p.MaxDaysCover); err != nil {
		return err
	}
	if p.MinDaysCover != nil && p.MaxDaysCover != nil && *p.MinDaysCover > *p.MaxDaysCover {
		return &ValidationError{Field: "min_days_cover", Message: "must not exceed max_days_cover"}
	}
	return nil
}

func validateDaysCover(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if !isFinite(*v) {
		return &ValidationError{Field: field, Message: "must be a finite number"}
	}
	if *v < 0 {
		return &ValidationError{Field: field, Message: "must be non-negative"}
	}
	return nil
}

// normalized returns a copy with the default strategy filled in.
func (p Params) normalized() Params {
	if p.Strategy == "" {
		p.Strategy = StrategyLatest
	}
	p.Strategy = Strategy(strings.ToLower(string(p.Strategy)))
	return p
}

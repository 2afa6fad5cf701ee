package kpi

import (
	"errors"
	"fmt"
)

// EmptyDatasetError reports a required input with no rows. Computation
// stops when it is returned.
type EmptyDatasetError struct {
	Table string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("kpi: empty dataset: %s has no rows", e.Table)
}

// DivisionByZeroError reports a zero denominator. Inside Compute it is
// downgraded to a warning and the affected value contributes nothing.
type DivisionByZeroError struct {
	Metric  string
	Subject string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("kpi: division by zero computing %s for %s", e.Metric, e.Subject)
}

// NegativeMaximumError reports a risk component whose largest value across
// countries is below zero, e.g. every country buying under benchmark. The
// component is left out of the risk score, as for a zero maximum.
type NegativeMaximumError struct {
	Metric string
	Max    float64
}

func (e *NegativeMaximumError) Error() string {
	return fmt.Sprintf("kpi: %s maximum is negative (%g); left out of the risk score", e.Metric, e.Max)
}

// MissingReferenceRowError reports a procurement record whose country,
// product or benchmark row does not exist.
type MissingReferenceRowError struct {
	ProcurementID int
	Table         string
	Key           int
}

func (e *MissingReferenceRowError) Error() string {
	return fmt.Sprintf("kpi: procurement %d references missing %s row %d", e.ProcurementID, e.Table, e.Key)
}

// InvalidArgumentError reports a caller-supplied parameter out of range.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("kpi: invalid %s: %s", e.Field, e.Reason)
}

// Warning is a non-fatal problem met while computing KPIs.
type Warning struct {
	CountryID int    `json:"country_id,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func newWarning(countryID int, err error) Warning {
	return Warning{CountryID: countryID, Message: err.Error(), Err: err}
}

// IsEmptyDataset reports whether err carries an EmptyDatasetError.
func IsEmptyDataset(err error) bool {
	var e *EmptyDatasetError
	return errors.As(err, &e)
}

// IsInvalidArgument reports whether err carries an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

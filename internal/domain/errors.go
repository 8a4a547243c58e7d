package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingValues is returned when a table that must be complete holds NaN observations.
	ErrMissingValues = errors.New("table has missing values")

	// ErrEmptyQuantile is returned when no weighted observation is left to take a quantile of.
	ErrEmptyQuantile = errors.New("quantile undefined: no weighted observations")

	// ErrInvalidClusterCount is returned for k <= 1 or k greater than the number of series.
	ErrInvalidClusterCount = errors.New("invalid cluster count")

	// ErrLabelMismatch is returned when a parameter table does not cover exactly
	// the cells of the clustered growth-rate table.
	ErrLabelMismatch = errors.New("parameter table rows do not match clustered cells")

	// ErrRaggedTable is returned for structurally invalid tables.
	ErrRaggedTable = errors.New("malformed table")

	// ErrAlreadyClustered is returned when the elbow curve is requested for a
	// unit whose clustering artifact already exists.
	ErrAlreadyClustered = errors.New("clustering result already exists")

	// ErrArtifactNotFound is returned when a requested artifact has not been written.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrUnknownScope is returned for scope names missing from the scope configuration.
	ErrUnknownScope = errors.New("unknown scope")
)

// MissingValuesError reports where NaN observations were found.
type MissingValuesError struct {
	Parameter Parameter
	Count     int
	First     CellKey
}

func (e *MissingValuesError) Error() string {
	return fmt.Sprintf("%s: %s has %d NaN values (first at %s)", ErrMissingValues, e.Parameter, e.Count, e.First)
}

func (e *MissingValuesError) Unwrap() error { return ErrMissingValues }

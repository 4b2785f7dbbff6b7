package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrWorkflowNotFound is returned when a workflow cannot be located.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrCellOccupied reports a placement or move onto a cell that already holds an activity.
	ErrCellOccupied = errors.New("grid cell occupied")
	// ErrInvalidGridLocation rejects labels that are not placement locations.
	ErrInvalidGridLocation = errors.New("invalid grid location")
	// ErrInvalidResolution rejects unknown conflict resolutions.
	ErrInvalidResolution = errors.New("invalid conflict resolution")
	// ErrValidation wraps field level input errors.
	ErrValidation = errors.New("validation failed")
	// ErrWorkflowBusy is returned when another operation holds the workflow lock.
	ErrWorkflowBusy = errors.New("workflow busy")
)

// ConflictError describes the activity occupying a requested cell.
type ConflictError struct {
	Location string
	Occupant Activity
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("grid cell %s occupied by activity %d (%s)", e.Location, e.Occupant.ID, e.Occupant.Name)
}

// Unwrap lets callers match ErrCellOccupied.
func (e *ConflictError) Unwrap() error {
	return ErrCellOccupied
}

func invalidLocation(location string) error {
	return fmt.Errorf("%w: %q", ErrInvalidGridLocation, location)
}

func invalidField(field, detail string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, detail)
}

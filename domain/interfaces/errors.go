package interfaces

import "errors"

var (
	// ErrElementNotFound is returned when an element is missing after its wait
	ErrElementNotFound = errors.New("element not found")

	// ErrUnexpectedPage is returned when the page content does not match the
	// screen the loop expects
	ErrUnexpectedPage = errors.New("unexpected page state")

	// ErrSlotTaken is returned when the confirmation popup reports an error,
	// usually because someone else booked the slot first
	ErrSlotTaken = errors.New("slot taken by another user")
)

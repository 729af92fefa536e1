package store

import "errors"

var (
	// ErrAlreadyExists is returned by OpenIntentRecord when a terminal
	// (Claimed or Refunded) record already exists for the intent hash.
	ErrAlreadyExists = errors.New("store: intent record already exists in a terminal state")

	// ErrAlreadyFulfilled is returned by OpenFulfillmentMarker when a
	// marker already exists for the intent hash. Idempotency here is a
	// failure, not a no-op.
	ErrAlreadyFulfilled = errors.New("store: fulfillment marker already exists")

	// ErrNotFound is returned when a lookup finds no record.
	ErrNotFound = errors.New("store: record not found")

	// ErrAlreadyProven is returned by OpenProofRecord when a proof record
	// already exists for the intent hash; callers treat this as
	// duplicate-ok and continue processing the rest of an inbound batch.
	ErrAlreadyProven = errors.New("store: proof record already exists")

	// ErrProofRecordNotClosable guards CloseProofRecord preconditions.
	ErrProofRecordNotClosable = errors.New("store: proof record not eligible for close")
)

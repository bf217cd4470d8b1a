package domain

import "errors"

// Pipeline errors form a closed taxonomy so each surface can translate them
// into user-facing messages with the right status instead of catching a
// generic failure.
var (
	// ErrEmptyAfterLoad means the source parsed but produced no rows/columns.
	ErrEmptyAfterLoad = errors.New("dataset is empty after load")

	// ErrEmptyAfterCleaning means no usable data survived sanitization.
	ErrEmptyAfterCleaning = errors.New("dataset is empty after cleaning")

	// ErrSchema covers structural mismatches: too few columns, or a feature
	// vector whose length differs from the trained input dimension.
	ErrSchema = errors.New("schema mismatch")

	// ErrNumericValidity means a NaN or infinite value was detected where
	// only finite numbers are allowed.
	ErrNumericValidity = errors.New("non-finite value in data")

	// ErrSizing means the dataset is too small for training or for a
	// non-empty train/test split.
	ErrSizing = errors.New("insufficient data")

	// ErrNoModel means an evaluate/predict call arrived before any model
	// was trained or loaded.
	ErrNoModel = errors.New("no trained model available")
)

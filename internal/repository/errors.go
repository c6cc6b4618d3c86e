package repository

import "errors"

var (
	// ErrRequestIDConflict is returned when an external request id already
	// belongs to a package in another vault.
	ErrRequestIDConflict = errors.New("external request id belongs to another vault")

	// ErrAssetExists is returned when an insert hits one of the per-package
	// asset uniqueness constraints.
	ErrAssetExists = errors.New("asset already exists in package")
)

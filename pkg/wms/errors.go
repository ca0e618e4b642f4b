package wms

import "errors"

var (
	// ErrInvalidConfiguration indicates a missing or empty required
	// configuration value, either at construction or through a setter.
	ErrInvalidConfiguration = errors.New("wms: invalid configuration")

	// ErrInvalidArgument indicates an invalid argument passed to a build
	// operation.
	ErrInvalidArgument = errors.New("wms: invalid argument")
)

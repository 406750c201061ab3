package usecase

import "errors"

var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrChannelAlreadyExists  = errors.New("channel with this internal link already exists")
	ErrPageAlreadyExists     = errors.New("page with this path already exists in the channel")
	ErrProviderAlreadyExists = errors.New("provider with this slug already exists")
	// ErrNoDataProvided is returned for an edit carrying no fields.
	ErrNoDataProvided    = errors.New("no data provided")
	ErrChannelInactive   = errors.New("channel is not active")
	ErrChannelMissingURL = errors.New("channel has no internal link")
	ErrChannelHasNoPages = errors.New("channel has no pages")
	// ErrInvalidArgument wraps query parameters the use case cannot run with.
	ErrInvalidArgument = errors.New("invalid argument")
)

package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API errors. ErrRateLimited and ErrNotFound always wrap ErrAPIRequest.
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("%w: rate limited", ErrAPIRequest)
	ErrNotFound           = fmt.Errorf("%w: resource not found", ErrAPIRequest)
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Data shape errors
	ErrDataShape = fmt.Errorf("unexpected data shape")
	ErrPageCycle = fmt.Errorf("%w: pagination revisited a page", ErrDataShape)

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrUnknownDataset  = fmt.Errorf("unknown dataset")
	ErrDatasetNotFound = fmt.Errorf("dataset not found")
	ErrRunNotFound     = fmt.Errorf("run not found")
)

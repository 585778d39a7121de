package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents a failure reaching a publisher (FetchError)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit represents a publisher refusing requests for a while
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeExtraction represents a strategy finding no usable candidate (ExtractionMiss)
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeValidation represents a candidate failing count/shape checks (ValidationDiscard)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeGameNotFound represents an unknown game id at the query boundary
	ErrorTypeGameNotFound ErrorType = "game_not_found"
	// ErrorTypeDateNotFound represents a date with no stored draw
	ErrorTypeDateNotFound ErrorType = "date_not_found"
	// ErrorTypeNoData represents a known game with an empty history
	ErrorTypeNoData ErrorType = "no_data"
	// ErrorTypeInvalidInput represents a malformed date or draw time from a caller
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeStorage represents history document read/write errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// LotteryError is the error shape shared by the refresh pipeline and the query layer.
// Hints carries the recovery data attached to user-visible errors: known game ids,
// closest dates, or the date renderings an extractor tried.
type LotteryError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Hints   []string
	Time    time.Time
}

// Error implements the error interface
func (e *LotteryError) Error() string {
	if e.Source == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *LotteryError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *LotteryError) IsRetryable() bool {
	return e.Type == ErrorTypeNetwork
}

// IsUserVisible reports whether the error belongs to the serving path's taxonomy.
func (e *LotteryError) IsUserVisible() bool {
	switch e.Type {
	case ErrorTypeGameNotFound, ErrorTypeDateNotFound, ErrorTypeNoData, ErrorTypeInvalidInput:
		return true
	default:
		return false
	}
}

// New creates a new LotteryError
func New(errType ErrorType, source, message string, err error) *LotteryError {
	return &LotteryError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// WithHints attaches recovery hints and returns the same error
func (e *LotteryError) WithHints(hints ...string) *LotteryError {
	e.Hints = append(e.Hints, hints...)
	return e
}

// As returns the *LotteryError in err's chain, if any
func As(err error) (*LotteryError, bool) {
	var le *LotteryError
	if stderrors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// Is reports whether err's chain contains a LotteryError of the given type
func Is(err error, errType ErrorType) bool {
	le, ok := As(err)
	return ok && le.Type == errType
}

// NewFetch creates a new network error carrying the attempted URL
func NewFetch(url, message string, err error) *LotteryError {
	return New(ErrorTypeNetwork, url, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, retryAfter string) *LotteryError {
	message := "rate limited"
	if retryAfter != "" {
		message = fmt.Sprintf("rate limited; retry after %s", retryAfter)
	}
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewExtractionMiss creates a new extraction miss listing what was tried
func NewExtractionMiss(source, message string, tried ...string) *LotteryError {
	return New(ErrorTypeExtraction, source, message, nil).WithHints(tried...)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *LotteryError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewGameNotFound creates a new unknown game error listing the known ids
func NewGameNotFound(game string, available []string) *LotteryError {
	return New(ErrorTypeGameNotFound, "", fmt.Sprintf("Game not found: %s", game), nil).WithHints(available...)
}

// NewDateNotFound creates a new missing date error listing the closest dates
func NewDateNotFound(game, date string, closest []string) *LotteryError {
	return New(ErrorTypeDateNotFound, "", fmt.Sprintf("No results for %s on %s", game, date), nil).WithHints(closest...)
}

// NewNoData creates a new empty history error
func NewNoData(game string) *LotteryError {
	return New(ErrorTypeNoData, game, "No draw data available", nil)
}

// NewInvalidInput creates a new invalid input error
func NewInvalidInput(field, message string) *LotteryError {
	return New(ErrorTypeInvalidInput, field, message, nil)
}

// NewStorage creates a new storage error
func NewStorage(path, message string, err error) *LotteryError {
	return New(ErrorTypeStorage, path, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *LotteryError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *LotteryError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *LotteryError {
	return New(ErrorTypeConfiguration, "", message, err)
}

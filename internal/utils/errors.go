package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mobiusml/aana-chat-with-video/internal/models"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"
)

// AppError is the unified error contract across layers.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "IndexService.Index"
	Message string // safe message
	Err     error  // wrapped error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// DuplicateMediaError means the media id is already registered. It is raised
// before any write for the new submission.
type DuplicateMediaError struct {
	MediaID string
}

func (e *DuplicateMediaError) Error() string {
	return fmt.Sprintf("media id %q already exists", e.MediaID)
}

// Which duration check rejected the video.
const (
	DurationCheckPrecheck     = "precheck"
	DurationCheckPostDownload = "post_download"
)

// VideoTooLongError means the video duration is over the configured ceiling.
// Check records which of the two validation points triggered.
type VideoTooLongError struct {
	MediaID     string
	Duration    float64
	MaxDuration float64
	Check       string
}

func (e *VideoTooLongError) Error() string {
	return fmt.Sprintf("video %q is too long (%s): %.1fs exceeds the maximum of %.1fs",
		e.MediaID, e.Check, e.Duration, e.MaxDuration)
}

// NotFoundError means no record exists for the media id.
type NotFoundError struct {
	MediaID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("media id %q not found", e.MediaID)
}

// UnfinishedVideoError means chat was requested before indexing completed.
type UnfinishedVideoError struct {
	MediaID string
	Status  models.VideoStatus
}

func (e *UnfinishedVideoError) Error() string {
	return fmt.Sprintf("the video data for %q is not available, status: %s", e.MediaID, e.Status)
}

// MismatchedLengthError means caption and timestamp counts disagree.
type MismatchedLengthError struct {
	Captions   int
	Timestamps int
}

func (e *MismatchedLengthError) Error() string {
	return fmt.Sprintf("length of captions (%d) and timestamps (%d) do not match",
		e.Captions, e.Timestamps)
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnavailable:
			return http.StatusServiceUnavailable
		case CodeTimeout:
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}

	var (
		dup        *DuplicateMediaError
		tooLong    *VideoTooLongError
		notFound   *NotFoundError
		unfinished *UnfinishedVideoError
		mismatched *MismatchedLengthError
	)
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &tooLong):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unfinished):
		return http.StatusConflict
	case errors.As(err, &mismatched):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so callers can map them to a terminal
// document status or an HTTP code without string matching.
type Kind string

const (
	KindExtraction      Kind = "EXTRACTION_ERROR"
	KindChunking        Kind = "CHUNKING_ERROR"
	KindEmbedding       Kind = "EMBEDDING_ERROR"
	KindVectorStore     Kind = "VECTOR_STORE_ERROR"
	KindQueue           Kind = "QUEUE_ERROR"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindNotFound        Kind = "NOT_FOUND"
	KindPathSecurity    Kind = "PATH_SECURITY_ERROR"
	KindUnsupportedType Kind = "UNSUPPORTED_TYPE"
	KindValidation      Kind = "VALIDATION_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func Extraction(message string, cause error) *Error {
	return Wrap(KindExtraction, message, cause)
}

func Chunking(message string, cause error) *Error {
	return Wrap(KindChunking, message, cause)
}

func Embedding(message string, cause error) *Error {
	return Wrap(KindEmbedding, message, cause)
}

func VectorStore(message string, cause error) *Error {
	return Wrap(KindVectorStore, message, cause)
}

func Queue(message string, cause error) *Error {
	return Wrap(KindQueue, message, cause)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func PathSecurity(message string) *Error {
	return New(KindPathSecurity, message)
}

func UnsupportedType(fileType string) *Error {
	return New(KindUnsupportedType, fmt.Sprintf("unsupported file type: %s", fileType))
}

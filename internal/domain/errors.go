package domain

import "errors"

var (
	// ErrDirectoryNotFound signals a missing image directory.
	ErrDirectoryNotFound = errors.New("image directory not found")
	// ErrImageDecode signals an unreadable or corrupt image file.
	ErrImageDecode = errors.New("image decode failed")
	// ErrProviderInit signals a failure while loading an external model provider.
	ErrProviderInit = errors.New("provider initialization failed")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

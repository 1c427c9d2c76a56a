package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the uploaded file could not be parsed
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyDocument indicates no text could be extracted from the document
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrInvalidProvider indicates an unknown AI provider
	ErrInvalidProvider = errors.New("invalid AI provider")

	// ErrEmbeddingService indicates the embedding provider call failed
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the generative model call failed
	ErrGenerationService = errors.New("generation service error")

	// ErrDimensionMismatch indicates a vector length differs from the collection dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCollectionNotFound indicates the vector collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists indicates the vector collection already exists
	ErrCollectionExists = errors.New("collection already exists")

	// ErrVectorDB indicates a vector database failure
	ErrVectorDB = errors.New("vector database error")

	// ErrDocumentNotReady indicates ingestion has not completed for the document
	ErrDocumentNotReady = errors.New("document not ready for querying")

	// ErrSessionNotFound indicates the conversation session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenInvalid indicates the session token is malformed or invalid
	ErrTokenInvalid = errors.New("session token invalid")
)

package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingConfig indicates required configuration values are absent.
	ErrMissingConfig = errors.New("missing configuration")

	// Ingestion Errors.

	// ErrFetch indicates a sitemap or page could not be fetched.
	ErrFetch = errors.New("fetch failed")

	// ErrParse indicates a fetched document could not be parsed.
	ErrParse = errors.New("parse failed")

	// ErrNoContent indicates no content selector yielded text.
	ErrNoContent = errors.New("no content found")

	// ErrNoURLs indicates URL resolution produced nothing in sitemap-only mode.
	ErrNoURLs = errors.New("no URLs to ingest")

	// ErrNoDocuments indicates every page failed or was filtered out.
	ErrNoDocuments = errors.New("no usable documents")

	// Provider Errors.

	// ErrProvider indicates an embedding or chat provider call failed.
	ErrProvider = errors.New("provider error")

	// ErrEmptyResponse indicates a provider returned no usable text.
	ErrEmptyResponse = errors.New("empty provider response")

	// ErrLLMUnavailable indicates the chat model is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrPersistence indicates the conversation history could not be read or written.
	ErrPersistence = errors.New("history persistence failed")
)

// StorageErrorKind classifies vector store failures that need manual remediation.
type StorageErrorKind string

// Storage failure kinds.
const (
	StorageCollectionMissing StorageErrorKind = "collection_missing"
	StorageSchemaMismatch    StorageErrorKind = "schema_mismatch"
	StorageExtensionMissing  StorageErrorKind = "extension_missing"
	StorageDimensionMismatch StorageErrorKind = "dimension_mismatch"
	StorageFunctionMissing   StorageErrorKind = "function_missing"
	StorageUnreachable       StorageErrorKind = "unreachable"
	StorageWriteFailed       StorageErrorKind = "write_failed"
)

// Remediation returns operator guidance for the kind.
func (k StorageErrorKind) Remediation() string {
	switch k {
	case StorageCollectionMissing:
		return "create the documents table (run `gitbook-qa schema --apply`)"
	case StorageSchemaMismatch:
		return "recreate the documents table with columns id, content, metadata, embedding " +
			"(run `gitbook-qa schema --apply --drop`)"
	case StorageExtensionMissing:
		return "enable the pgvector extension: CREATE EXTENSION IF NOT EXISTS vector"
	case StorageDimensionMismatch:
		return "the embedding column size must match the embedding model; " +
			"recreate the schema or change EMBEDDING_MODEL"
	case StorageFunctionMissing:
		return "create the match_documents similarity function (run `gitbook-qa schema --apply`)"
	case StorageUnreachable:
		return "check DATABASE_URL / QDRANT_ADDR and that the store is running"
	default:
		return "inspect the vector store logs"
	}
}

// StorageError is a classified vector store failure.
// It is never retried; the operator must fix the store out of band.
type StorageError struct {
	Kind StorageErrorKind

	// Written is the number of records persisted before the failure.
	Written int

	Err error
}

// NewStorageError wraps err with a kind.
func NewStorageError(kind StorageErrorKind, err error) *StorageError {
	return &StorageError{Kind: kind, Err: err}
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("vector store %s", e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Written > 0 {
		msg += fmt.Sprintf(" (%d records written before failure)", e.Written)
	}
	return msg + "; " + e.Kind.Remediation()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// Postgres error codes that map to a remediation.
const (
	codeUndefinedTable    = "42P01"
	codeUndefinedColumn   = "42703"
	codeUndefinedObject   = "42704"
	codeUndefinedFunction = "42883"
	codeDataException     = "22000"
	codeInvalidPassword   = "28P01"
	codeInvalidAuth       = "28000"
	codeInvalidCatalog    = "3D000"
)

// classify turns a driver error into a *domain.StorageError when it needs
// operator action. Other errors are returned unchanged.
//
//nolint:gocyclo // Flat mapping of error codes
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := strings.ToLower(pqErr.Message)
		switch {
		case pqErr.Code == codeUndefinedTable:
			return domain.NewStorageError(domain.StorageCollectionMissing, err)
		case pqErr.Code == codeUndefinedColumn:
			return domain.NewStorageError(domain.StorageSchemaMismatch, err)
		case pqErr.Code == codeUndefinedObject && strings.Contains(msg, "vector"):
			return domain.NewStorageError(domain.StorageExtensionMissing, err)
		case pqErr.Code == codeUndefinedFunction && strings.Contains(msg, "match_documents"):
			return domain.NewStorageError(domain.StorageFunctionMissing, err)
		case pqErr.Code == codeUndefinedFunction && (strings.Contains(msg, "<=>") || strings.Contains(msg, "vector")):
			return domain.NewStorageError(domain.StorageExtensionMissing, err)
		case pqErr.Code == codeDataException && strings.Contains(msg, "dimensions"):
			return domain.NewStorageError(domain.StorageDimensionMismatch, err)
		case pqErr.Code == codeInvalidPassword, pqErr.Code == codeInvalidAuth, pqErr.Code == codeInvalidCatalog:
			return domain.NewStorageError(domain.StorageUnreachable, err)
		case pqErr.Code.Class() == "08":
			return domain.NewStorageError(domain.StorageUnreachable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return domain.NewStorageError(domain.StorageUnreachable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewStorageError(domain.StorageUnreachable, err)
	}
	return err
}

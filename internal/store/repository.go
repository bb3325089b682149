/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the collection-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @notes
 * - `UpsertReceipt` is the only write path. It hands the caller's mutator the
 *   current record (nil when the reference is unknown) and persists whatever
 *   the mutator returns, all under a per-reference critical section, so a
 *   read-modify-write can never interleave with another writer.
 */

package store

import (
	"context"
	"errors"

	"github.com/swiftloan/collection-service/internal/domain"
)

// ErrReceiptNotFound is returned by GetReceipt when no record exists for a reference.
var ErrReceiptNotFound = errors.New("receipt not found")

// Repository defines the set of methods for interacting with the receipt store.
type Repository interface {
	// GetReceipt returns the receipt for a reference, or ErrReceiptNotFound.
	GetReceipt(ctx context.Context, reference string) (*domain.Receipt, error)

	// UpsertReceipt atomically reads the current receipt for a reference,
	// applies the mutator (existing is nil when the reference is unknown),
	// and persists the result. A mutator error aborts without writing.
	// Calls for the same reference serialize.
	UpsertReceipt(ctx context.Context, reference string, mutate func(existing *domain.Receipt) (domain.Receipt, error)) (*domain.Receipt, error)
}

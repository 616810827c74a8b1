/*
Package store defines the persistence interface of the system and the
record validation applied at the storage boundary.

PURPOSE:
  The core logic is agnostic to how records are persisted. Two
  implementations exist:
  - store/sqlite:   multi-table store with secondary indexes
  - store/flatfile: flat record lists persisted wholesale as one JSON file

  Both enforce the same invariants: records are validated before every
  write, usernames are unique, and deleting a contract cascades to its
  payments so no orphan payment remains retrievable.

ERROR CONTRACT:
  Get* return (nil, nil) when the id does not exist; callers null-check.
  Update and Delete return ledger.ErrNotFound for missing ids, Add/Update
  return ledger.ErrConflict on uniqueness violations and a
  *ledger.ValidationError (wrapping ledger.ErrInvalid) on rejected
  records. Everything else wraps ledger.ErrStorage.

SEE ALSO:
  - validate.go: write-boundary validation rules
*/
package store

import (
	"context"

	"github.com/ShuVe1/site-agreement/ledger"
)

// Store is the table-oriented record store consumed by the presentation
// layer and the core logic.
type Store interface {
	// Users
	AddUser(ctx context.Context, u ledger.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*ledger.User, error)
	GetUserByUsername(ctx context.Context, username string) (*ledger.User, error)
	ListUsers(ctx context.Context) ([]ledger.User, error)
	UpdateUser(ctx context.Context, u ledger.User) error
	DeleteUser(ctx context.Context, id int64) error

	// Contracts
	AddContract(ctx context.Context, c ledger.Contract) (int64, error)
	GetContract(ctx context.Context, id int64) (*ledger.Contract, error)
	ListContracts(ctx context.Context) ([]ledger.Contract, error)
	UpdateContract(ctx context.Context, c ledger.Contract) error

	// DeleteContract removes the contract and every payment referencing it.
	DeleteContract(ctx context.Context, id int64) error

	// Payments
	AddPayment(ctx context.Context, p ledger.Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*ledger.Payment, error)
	ListPayments(ctx context.Context) ([]ledger.Payment, error)
	ListPaymentsByContract(ctx context.Context, contractID int64) ([]ledger.Payment, error)
	UpdatePayment(ctx context.Context, p ledger.Payment) error

	Close() error
}

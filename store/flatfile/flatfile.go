/*
Package flatfile provides the flat-list implementation of the record
store: every table is a plain slice held in memory, and the whole
database is persisted wholesale as a single JSON document after each
mutation.

This is the simple-persistent-storage variant. It trades indexes and
per-record IO for a trivially inspectable on-disk format. Cascade
deletion of a contract's payments is explicit here; the sqlite variant
delegates it to a foreign key.

An empty path keeps the store purely in memory (tests).
*/
package flatfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/store"
)

type document struct {
	NextID        map[string]int64      `json:"nextId"`
	Users         []ledger.User         `json:"users"`
	Contracts     []ledger.Contract     `json:"contracts"`
	Payments      []ledger.Payment      `json:"payments"`
	Notifications []ledger.Notification `json:"notifications"`
}

const (
	tableUsers     = "users"
	tableContracts = "contracts"
	tablePayments  = "payments"
)

// Store implements store.Store on a single JSON document.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
}

var _ store.Store = (*Store)(nil)

// Open loads the document at path, creating an empty one if the file
// does not exist yet. An empty path disables persistence.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  document{NextID: make(map[string]int64)},
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	if s.doc.NextID == nil {
		s.doc.NextID = make(map[string]int64)
	}
	return s, nil
}

// Close is a no-op; every mutation is already flushed.
func (s *Store) Close() error { return nil }

// persist rewrites the whole document. Write-temp-then-rename keeps the
// file intact if the process dies mid-write. Caller holds the lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode store file: %v", ledger.ErrStorage, err)
	}
	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write store file: %v", ledger.ErrStorage, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace store file: %v", ledger.ErrStorage, err)
	}
	return nil
}

func (s *Store) nextID(table string) int64 {
	s.doc.NextID[table]++
	return s.doc.NextID[table]
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) AddUser(_ context.Context, u ledger.User) (int64, error) {
	if err := store.ValidateUser(u); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.doc.Users {
		if existing.Username == u.Username {
			return 0, fmt.Errorf("username %q: %w", u.Username, ledger.ErrConflict)
		}
	}

	u.ID = s.nextID(tableUsers)
	s.doc.Users = append(s.doc.Users, u)
	if err := s.persist(); err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.doc.Users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListUsers(_ context.Context) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.User, len(s.doc.Users))
	copy(out, s.doc.Users)
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, u ledger.User) error {
	if err := store.ValidateUser(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.doc.Users {
		if existing.Username == u.Username && existing.ID != u.ID {
			return fmt.Errorf("username %q: %w", u.Username, ledger.ErrConflict)
		}
	}
	for i, existing := range s.doc.Users {
		if existing.ID == u.ID {
			s.doc.Users[i] = u
			return s.persist()
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.doc.Users {
		if u.ID == id {
			s.doc.Users = append(s.doc.Users[:i], s.doc.Users[i+1:]...)
			return s.persist()
		}
	}
	return ledger.ErrNotFound
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) AddContract(_ context.Context, c ledger.Contract) (int64, error) {
	if err := store.ValidateContract(c); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID(tableContracts)
	s.doc.Contracts = append(s.doc.Contracts, c)
	if err := s.persist(); err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *Store) GetContract(_ context.Context, id int64) (*ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.doc.Contracts {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListContracts(_ context.Context) ([]ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Contract, len(s.doc.Contracts))
	copy(out, s.doc.Contracts)
	return out, nil
}

func (s *Store) UpdateContract(_ context.Context, c ledger.Contract) error {
	if err := store.ValidateContract(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.doc.Contracts {
		if existing.ID == c.ID {
			s.doc.Contracts[i] = c
			return s.persist()
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) DeleteContract(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.doc.Contracts {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ledger.ErrNotFound
	}

	s.doc.Contracts = append(s.doc.Contracts[:idx], s.doc.Contracts[idx+1:]...)

	// Explicit cascade: drop every payment referencing the contract.
	kept := s.doc.Payments[:0]
	for _, p := range s.doc.Payments {
		if p.ContractID != id {
			kept = append(kept, p)
		}
	}
	s.doc.Payments = kept

	return s.persist()
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) AddPayment(_ context.Context, p ledger.Payment) (int64, error) {
	if err := store.ValidatePayment(p); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, c := range s.doc.Contracts {
		if c.ID == p.ContractID {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("contract %d: %w", p.ContractID, ledger.ErrNotFound)
	}

	p.ID = s.nextID(tablePayments)
	s.doc.Payments = append(s.doc.Payments, p)
	if err := s.persist(); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.doc.Payments {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPayments(_ context.Context) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Payment, len(s.doc.Payments))
	copy(out, s.doc.Payments)
	return out, nil
}

func (s *Store) ListPaymentsByContract(_ context.Context, contractID int64) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Payment
	for _, p := range s.doc.Payments {
		if p.ContractID == contractID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdatePayment(_ context.Context, p ledger.Payment) error {
	if err := store.ValidatePayment(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.doc.Payments {
		if existing.ID == p.ID {
			s.doc.Payments[i] = p
			return s.persist()
		}
	}
	return ledger.ErrNotFound
}

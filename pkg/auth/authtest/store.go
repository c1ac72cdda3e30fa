// Package authtest provides an in-memory credential store for tests of code
// built on auth.Manager.
package authtest

import (
	"sync"

	"igfeedprobe/pkg/auth"
)

// MemoryStore is an in-memory auth.CredentialStore. The *Error fields, when
// set, are returned by the matching method.
type MemoryStore struct {
	accounts map[string]*auth.Account
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*auth.Account),
	}
}

func (m *MemoryStore) Store(account *auth.Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if account == nil || account.Username == "" {
		return auth.ErrInvalidCredentials
	}

	accountCopy := *account
	m.accounts[account.Username] = &accountCopy
	return nil
}

func (m *MemoryStore) Retrieve(username string) (*auth.Account, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if username == "" {
		return nil, auth.ErrInvalidCredentials
	}

	account, exists := m.accounts[username]
	if !exists {
		return nil, auth.ErrCredentialsNotFound
	}

	accountCopy := *account
	return &accountCopy, nil
}

func (m *MemoryStore) List() ([]*auth.Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	accounts := make([]*auth.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		accountCopy := *account
		accounts = append(accounts, &accountCopy)
	}
	return accounts, nil
}

func (m *MemoryStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if username == "" {
		return auth.ErrInvalidCredentials
	}
	if _, exists := m.accounts[username]; !exists {
		return auth.ErrCredentialsNotFound
	}

	delete(m.accounts, username)
	return nil
}

func (m *MemoryStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.accounts[username]
	return exists
}

// Count returns the number of stored accounts
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.accounts)
}

// NewManager returns a Manager backed by a single MemoryStore
func NewManager() (*auth.Manager, *MemoryStore) {
	store := NewMemoryStore()
	return auth.NewManagerWithStores(nil, store), store
}

package accounts

import (
	"errors"
	"slices"
	"sync"

	"github.com/yerna09/smartselling/internal/domain"
)

var ErrDuplicateID = errors.New("account id already present")

// Store is the authoritative local collection of linked accounts. All
// mutation goes through the primitives below; reads hand out clones so no
// caller can alias the internal slice.
//
// Full-collection replaces are guarded by a monotonic ticket: every
// reconciling operation takes a ticket up front and commits with it, and a
// commit whose ticket is not newer than the last applied one is discarded.
// That way a slow response from an older operation can never clobber the
// result of a newer one, and Reset invalidates everything still in flight.
type Store struct {
	mu       sync.Mutex
	accounts []domain.MLAccount

	ticketSeq  uint64
	lastTicket uint64
}

func NewStore() *Store {
	return &Store{}
}

// List returns a snapshot of the collection.
func (s *Store) List() []domain.MLAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts)
}

func (s *Store) Get(id int64) (domain.MLAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.MLAccount{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Replace discards the collection and installs list verbatim.
func (s *Store) Replace(list []domain.MLAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = slices.Clone(list)
}

// Add appends a new account. A duplicate id is a contract violation, not a
// merge.
func (s *Store) Add(account domain.MLAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == account.ID {
			return ErrDuplicateID
		}
	}
	s.accounts = append(s.accounts, account)
	return nil
}

// Update installs the given record over the stored one with the same id.
// A missing id is a deliberate no-op: an edit reconciliation racing an
// unlink must not resurrect the removed account.
func (s *Store) Update(account domain.MLAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.accounts {
		if a.ID == account.ID {
			s.accounts[i] = account
			return
		}
	}
}

// Remove filters the account out; absent ids are a no-op.
func (s *Store) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = slices.DeleteFunc(s.accounts, func(a domain.MLAccount) bool {
		return a.ID == id
	})
}

// Reset empties the collection and marks every outstanding ticket stale.
// Called on logout so responses landing afterwards cannot mutate state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = nil
	s.lastTicket = s.ticketSeq
}

// BeginReplace hands out the ticket for one reconciling operation.
func (s *Store) BeginReplace() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketSeq++
	return s.ticketSeq
}

// CommitReplace installs list if ticket is newer than the last applied
// replace, and reports whether it did.
func (s *Store) CommitReplace(ticket uint64, list []domain.MLAccount) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket <= s.lastTicket {
		return false
	}
	s.lastTicket = ticket
	s.accounts = slices.Clone(list)
	return true
}

// Package session owns the client's identity and authentication phase.
package session

import (
	"context"
	"log"
	"sync"

	"github.com/yerna09/smartselling/internal/domain"
)

// Phase is the authentication state of the client. The store starts in
// PhaseLoading and settles into Anonymous or Authenticated; it only leaves
// those on the next explicit operation.
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseAnonymous     Phase = "anonymous"
	PhaseAuthenticated Phase = "authenticated"
)

// API is the slice of the SmartSelling client the session store drives.
type API interface {
	Profile(ctx context.Context) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.User, error)
	Register(ctx context.Context, username, password string) (domain.User, error)
	Logout(ctx context.Context) error
}

// Collection is what the session store needs from the account side: an
// initial load after authentication and a reset on logout/registration.
type Collection interface {
	Load(ctx context.Context) error
	Reset()
}

// Store is the single session state object. There is exactly one per
// running client; all reads go through snapshots and all writes through the
// named operations below.
type Store struct {
	api        API
	collection Collection

	mu    sync.Mutex // guards phase/user; network calls happen outside it
	phase Phase
	user  domain.User
}

func NewStore(api API, collection Collection) *Store {
	return &Store{
		api:        api,
		collection: collection,
		phase:      PhaseLoading,
	}
}

// Phase returns the current authentication phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// User returns the current identity; meaningful only when authenticated.
func (s *Store) User() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Initialize queries the current identity and always settles the phase:
// Authenticated (and the collection loaded) on success, Anonymous on any
// failure. It never returns an error.
func (s *Store) Initialize(ctx context.Context) Phase {
	user, err := s.api.Profile(ctx)
	if err != nil {
		s.transition(PhaseAnonymous, domain.User{})
		return PhaseAnonymous
	}
	s.transition(PhaseAuthenticated, user)
	s.loadCollection(ctx)
	return PhaseAuthenticated
}

// Login authenticates and, on success, loads the account collection. On
// failure the phase is left untouched and the collaborator's typed error is
// returned so callers can tell rejected credentials from a dead network.
// Concurrent duplicate logins are not deduplicated; the server sees both.
func (s *Store) Login(ctx context.Context, username, password string) error {
	user, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.transition(PhaseAuthenticated, user)
	s.loadCollection(ctx)
	return nil
}

// Register creates the account and authenticates. A brand-new user has no
// linked marketplaces, so the collection is seeded empty rather than
// fetched.
func (s *Store) Register(ctx context.Context, username, password string) error {
	user, err := s.api.Register(ctx, username, password)
	if err != nil {
		return err
	}
	s.transition(PhaseAuthenticated, user)
	s.collection.Reset()
	return nil
}

// Logout notifies the server best-effort and unconditionally goes
// Anonymous: local state is authoritative for "am I logged out". Resetting
// the collection also invalidates every in-flight reconciliation, so a
// response that lands after logout cannot repopulate state.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		log.Printf("server logout failed (ignored): %v", err)
	}
	s.transition(PhaseAnonymous, domain.User{})
	s.collection.Reset()
}

func (s *Store) transition(phase Phase, user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.user = user
}

func (s *Store) loadCollection(ctx context.Context) {
	if err := s.collection.Load(ctx); err != nil {
		// Stale-but-available beats blank: keep whatever is cached.
		log.Printf("account load failed: %v", err)
	}
}

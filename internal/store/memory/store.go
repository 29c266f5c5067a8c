package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/yerna09/smartselling/internal/domain"
	"github.com/yerna09/smartselling/internal/store"
)

type Store struct {
	mu sync.RWMutex

	nextUserID    int64
	nextAccountID int64

	users    map[int64]domain.User
	accounts map[int64]domain.MLAccount
	// daily samples per account, keyed by date
	daily      map[int64]map[string]domain.DailyMetrics
	linkStates map[string]domain.LinkState
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int64]domain.User),
		accounts:   make(map[int64]domain.MLAccount),
		daily:      make(map[int64]map[string]domain.DailyMetrics),
		linkStates: make(map[string]domain.LinkState),
	}
}

func (s *Store) CreateUser(username, passwordHash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return domain.User{}, store.ErrUserExists
		}
	}
	s.nextUserID++
	now := time.Now().UTC()
	user := domain.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    &now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) UserByUsername(username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (s *Store) UserByID(id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) SetUserToken(id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Token = token
	s.users[id] = u
	return nil
}

func (s *Store) ListAccounts(userID int64) ([]domain.MLAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MLAccount, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) AccountByID(userID, accountID int64) (domain.MLAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.MLAccount{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpsertAccount(account domain.MLAccount) (domain.MLAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.accounts {
		if existing.UserID == account.UserID && existing.MLUserID == account.MLUserID {
			// Relink: refresh identity and tokens, keep settings/metrics.
			existing.Nickname = account.Nickname
			existing.FirstName = account.FirstName
			existing.LastName = account.LastName
			existing.Email = account.Email
			existing.CountryID = account.CountryID
			existing.SiteID = account.SiteID
			existing.AccessToken = account.AccessToken
			existing.RefreshToken = account.RefreshToken
			existing.TokenExpiresAt = account.TokenExpiresAt
			s.accounts[id] = existing
			return existing, nil
		}
	}
	s.nextAccountID++
	now := time.Now().UTC()
	account.ID = s.nextAccountID
	account.IsActive = true
	account.CreatedAt = &now
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) UpdateAccountSettings(userID, accountID int64, update domain.AccountUpdate) (domain.MLAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.MLAccount{}, store.ErrNotFound
	}
	if update.Alias != nil {
		a.Alias = *update.Alias
	}
	if update.IsActive != nil {
		a.IsActive = *update.IsActive
	}
	s.accounts[accountID] = a
	return a, nil
}

func (s *Store) SaveAccountTokens(accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.AccessToken = accessToken
	a.RefreshToken = refreshToken
	a.TokenExpiresAt = &expiresAt
	s.accounts[accountID] = a
	return nil
}

func (s *Store) UpdateAccountMetrics(accountID int64, metrics domain.MetricsSnapshot, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.TotalSales = metrics.TotalSales
	a.TotalOrders = metrics.TotalOrders
	a.ActiveListings = metrics.ActiveListings
	a.LastMetricsUpdate = &at
	s.accounts[accountID] = a
	return nil
}

func (s *Store) DeleteAccount(userID, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.accounts, accountID)
	delete(s.daily, accountID)
	return nil
}

func (s *Store) SaveDailyMetrics(accountID int64, sample domain.DailyMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return store.ErrNotFound
	}
	byDate, ok := s.daily[accountID]
	if !ok {
		byDate = make(map[string]domain.DailyMetrics)
		s.daily[accountID] = byDate
	}
	byDate[sample.Date] = sample
	return nil
}

func (s *Store) ListDailyMetrics(accountID int64, limit int) ([]domain.DailyMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDate := s.daily[accountID]
	out := make([]domain.DailyMetrics, 0, len(byDate))
	for _, sample := range byDate {
		out = append(out, sample)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) SaveLinkState(state domain.LinkState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linkStates[state.State] = state
}

func (s *Store) ConsumeLinkState(state string) (domain.LinkState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.linkStates[state]
	if !ok {
		return domain.LinkState{}, store.ErrNotFound
	}
	delete(s.linkStates, state)
	return v, nil
}

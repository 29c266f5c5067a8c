package store

import (
	"errors"
	"time"

	"github.com/yerna09/smartselling/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

// Store is the server-side persistence contract used by the HTTP layer.
// Accounts are always scoped to their owning user.
type Store interface {
	CreateUser(username, passwordHash string) (domain.User, error)
	UserByUsername(username string) (domain.User, error)
	UserByID(id int64) (domain.User, error)
	SetUserToken(id int64, token string) error

	ListAccounts(userID int64) ([]domain.MLAccount, error)
	AccountByID(userID, accountID int64) (domain.MLAccount, error)
	// UpsertAccount matches on (UserID, MLUserID): relinking an already
	// linked seller refreshes its tokens instead of duplicating the row.
	UpsertAccount(account domain.MLAccount) (domain.MLAccount, error)
	UpdateAccountSettings(userID, accountID int64, update domain.AccountUpdate) (domain.MLAccount, error)
	SaveAccountTokens(accountID int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateAccountMetrics(accountID int64, metrics domain.MetricsSnapshot, at time.Time) error
	DeleteAccount(userID, accountID int64) error

	SaveDailyMetrics(accountID int64, sample domain.DailyMetrics) error
	ListDailyMetrics(accountID int64, limit int) ([]domain.DailyMetrics, error)

	SaveLinkState(state domain.LinkState)
	ConsumeLinkState(state string) (domain.LinkState, error)
}

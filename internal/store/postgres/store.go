package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/yerna09/smartselling/internal/domain"
	"github.com/yerna09/smartselling/internal/security/secretbox"
	"github.com/yerna09/smartselling/internal/store"
)

const uniqueViolation = "23505"

// Store persists users, linked accounts and daily metric samples in
// Postgres. Marketplace tokens are encrypted at rest; one-shot OAuth link
// states are short-lived and stay in memory like the rest of the process
// state that does not survive restarts.
type Store struct {
	db  *sql.DB
	box *secretbox.Box

	mu         sync.Mutex
	linkStates map[string]domain.LinkState
}

func NewStore(databaseURL string, box *secretbox.Box) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{
		db:         db,
		box:        box,
		linkStates: make(map[string]domain.LinkState),
	}, nil
}

func (s *Store) CreateUser(username, passwordHash string) (domain.User, error) {
	var user domain.User
	user.Username = username
	user.PasswordHash = passwordHash
	err := s.db.QueryRow(
		`insert into users(username, password_hash, created_at)
		 values ($1, $2, now())
		 returning id, created_at`,
		username, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.User{}, store.ErrUserExists
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) UserByUsername(username string) (domain.User, error) {
	return s.scanUser(s.db.QueryRow(
		`select id, username, password_hash, coalesce(token, ''), created_at
		 from users where username = $1`,
		username,
	))
}

func (s *Store) UserByID(id int64) (domain.User, error) {
	return s.scanUser(s.db.QueryRow(
		`select id, username, password_hash, coalesce(token, ''), created_at
		 from users where id = $1`,
		id,
	))
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Token, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) SetUserToken(id int64, token string) error {
	res, err := s.db.Exec(`update users set token = nullif($2, '') where id = $1`, id, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

const accountColumns = `id, user_id, ml_user_id, coalesce(ml_nickname, ''),
	coalesce(ml_first_name, ''), coalesce(ml_last_name, ''), coalesce(ml_email, ''),
	coalesce(ml_country_id, ''), coalesce(ml_site_id, ''), is_active,
	coalesce(account_alias, ''), total_sales, total_orders, active_listings,
	last_metrics_update, created_at, access_token_enc, coalesce(refresh_token_enc, ''), token_expires_at`

func (s *Store) ListAccounts(userID int64) ([]domain.MLAccount, error) {
	rows, err := s.db.Query(
		`select `+accountColumns+` from ml_accounts where user_id = $1 order by id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MLAccount, 0)
	for rows.Next() {
		account, err := s.scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func (s *Store) AccountByID(userID, accountID int64) (domain.MLAccount, error) {
	row := s.db.QueryRow(
		`select `+accountColumns+` from ml_accounts where id = $1 and user_id = $2`,
		accountID, userID,
	)
	account, err := s.scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MLAccount{}, store.ErrNotFound
		}
		return domain.MLAccount{}, err
	}
	return account, nil
}

func (s *Store) scanAccount(scan func(...interface{}) error) (domain.MLAccount, error) {
	var a domain.MLAccount
	var accessEnc, refreshEnc string
	err := scan(
		&a.ID, &a.UserID, &a.MLUserID, &a.Nickname,
		&a.FirstName, &a.LastName, &a.Email,
		&a.CountryID, &a.SiteID, &a.IsActive,
		&a.Alias, &a.TotalSales, &a.TotalOrders, &a.ActiveListings,
		&a.LastMetricsUpdate, &a.CreatedAt, &accessEnc, &refreshEnc, &a.TokenExpiresAt,
	)
	if err != nil {
		return domain.MLAccount{}, err
	}
	if a.AccessToken, err = s.box.Decrypt(accessEnc); err != nil {
		return domain.MLAccount{}, fmt.Errorf("decrypt access token for account %d: %w", a.ID, err)
	}
	if refreshEnc != "" {
		if a.RefreshToken, err = s.box.Decrypt(refreshEnc); err != nil {
			return domain.MLAccount{}, fmt.Errorf("decrypt refresh token for account %d: %w", a.ID, err)
		}
	}
	return a, nil
}

func (s *Store) UpsertAccount(account domain.MLAccount) (domain.MLAccount, error) {
	accessEnc, err := s.box.Encrypt(account.AccessToken)
	if err != nil {
		return domain.MLAccount{}, err
	}
	refreshEnc := ""
	if account.RefreshToken != "" {
		if refreshEnc, err = s.box.Encrypt(account.RefreshToken); err != nil {
			return domain.MLAccount{}, err
		}
	}

	var id int64
	err = s.db.QueryRow(
		`insert into ml_accounts(
			user_id, ml_user_id, ml_nickname, ml_first_name, ml_last_name, ml_email,
			ml_country_id, ml_site_id, is_active, access_token_enc, refresh_token_enc,
			token_expires_at, created_at, updated_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,true,$9,nullif($10,''),$11,now(),now())
		on conflict (user_id, ml_user_id) do update
		set ml_nickname = excluded.ml_nickname,
		    ml_first_name = excluded.ml_first_name,
		    ml_last_name = excluded.ml_last_name,
		    ml_email = excluded.ml_email,
		    ml_country_id = excluded.ml_country_id,
		    ml_site_id = excluded.ml_site_id,
		    access_token_enc = excluded.access_token_enc,
		    refresh_token_enc = excluded.refresh_token_enc,
		    token_expires_at = excluded.token_expires_at,
		    updated_at = now()
		returning id`,
		account.UserID, account.MLUserID, account.Nickname, account.FirstName,
		account.LastName, account.Email, account.CountryID, account.SiteID,
		accessEnc, refreshEnc, account.TokenExpiresAt,
	).Scan(&id)
	if err != nil {
		return domain.MLAccount{}, err
	}
	return s.AccountByID(account.UserID, id)
}

func (s *Store) UpdateAccountSettings(userID, accountID int64, update domain.AccountUpdate) (domain.MLAccount, error) {
	res, err := s.db.Exec(
		`update ml_accounts
		 set account_alias = coalesce($3, account_alias),
		     is_active = coalesce($4, is_active),
		     updated_at = now()
		 where id = $1 and user_id = $2`,
		accountID, userID, update.Alias, update.IsActive,
	)
	if err != nil {
		return domain.MLAccount{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.MLAccount{}, store.ErrNotFound
	}
	return s.AccountByID(userID, accountID)
}

func (s *Store) SaveAccountTokens(accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	accessEnc, err := s.box.Encrypt(accessToken)
	if err != nil {
		return err
	}
	refreshEnc := ""
	if refreshToken != "" {
		if refreshEnc, err = s.box.Encrypt(refreshToken); err != nil {
			return err
		}
	}
	res, err := s.db.Exec(
		`update ml_accounts
		 set access_token_enc = $2, refresh_token_enc = nullif($3, ''), token_expires_at = $4, updated_at = now()
		 where id = $1`,
		accountID, accessEnc, refreshEnc, expiresAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAccountMetrics(accountID int64, metrics domain.MetricsSnapshot, at time.Time) error {
	res, err := s.db.Exec(
		`update ml_accounts
		 set total_sales = $2, total_orders = $3, active_listings = $4,
		     last_metrics_update = $5, updated_at = now()
		 where id = $1`,
		accountID, metrics.TotalSales, metrics.TotalOrders, metrics.ActiveListings, at,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(userID, accountID int64) error {
	res, err := s.db.Exec(
		`delete from ml_accounts where id = $1 and user_id = $2`,
		accountID, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	_, _ = s.db.Exec(`delete from ml_daily_metrics where ml_account_id = $1`, accountID)
	return nil
}

func (s *Store) SaveDailyMetrics(accountID int64, sample domain.DailyMetrics) error {
	_, err := s.db.Exec(
		`insert into ml_daily_metrics(ml_account_id, date, daily_sales, daily_orders, daily_views, daily_questions, created_at)
		 values ($1, $2, $3, $4, $5, $6, now())
		 on conflict (ml_account_id, date) do update
		 set daily_sales = excluded.daily_sales,
		     daily_orders = excluded.daily_orders,
		     daily_views = excluded.daily_views,
		     daily_questions = excluded.daily_questions`,
		accountID, sample.Date, sample.DailySales, sample.DailyOrders, sample.DailyViews, sample.DailyQuestions,
	)
	return err
}

func (s *Store) ListDailyMetrics(accountID int64, limit int) ([]domain.DailyMetrics, error) {
	if limit <= 0 {
		limit = 90
	}
	// to_char keeps the wire format at YYYY-MM-DD; a bare date column comes
	// back from the driver as a timestamp.
	rows, err := s.db.Query(
		`select to_char(date, 'YYYY-MM-DD'), daily_sales, daily_orders, daily_views, daily_questions
		 from (
			select * from ml_daily_metrics where ml_account_id = $1 order by date desc limit $2
		 ) recent
		 order by date asc`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DailyMetrics, 0, limit)
	for rows.Next() {
		var d domain.DailyMetrics
		if err := rows.Scan(&d.Date, &d.DailySales, &d.DailyOrders, &d.DailyViews, &d.DailyQuestions); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
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

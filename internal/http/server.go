package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yerna09/smartselling/internal/config"
	"github.com/yerna09/smartselling/internal/domain"
	"github.com/yerna09/smartselling/internal/integrations/mercadolibre"
	"github.com/yerna09/smartselling/internal/integrations/telegram"
	"github.com/yerna09/smartselling/internal/service/insights"
	storepkg "github.com/yerna09/smartselling/internal/store"
)

type contextKey string

const contextKeyUser contextKey = "current_user"

const sessionCookie = "token"

type Server struct {
	cfg      config.Config
	store    storepkg.Store
	ml       *mercadolibre.Client
	mlOAuth  *mercadolibre.OAuthClient
	notifier *telegram.Notifier
	trend    *insights.Engine
}

func NewServer(
	cfg config.Config,
	store storepkg.Store,
	ml *mercadolibre.Client,
	notifier *telegram.Notifier,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		ml:       ml,
		notifier: notifier,
		mlOAuth: &mercadolibre.OAuthClient{
			ClientID:     cfg.MLClientID,
			ClientSecret: cfg.MLClientSecret,
			AuthURL:      cfg.MLAuthURL,
			TokenURL:     cfg.MLTokenURL,
			RedirectURI:  cfg.MLRedirectURI,
		},
		trend: insights.NewEngine(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireUser)
		protected.Get("/profile", s.handleProfile)
		protected.Post("/logout", s.handleLogout)

		protected.Get("/ml-accounts", s.handleListAccounts)
		protected.Put("/ml-accounts/{accountID}", s.handleUpdateAccount)
		protected.Delete("/ml-accounts/{accountID}", s.handleDeleteAccount)
		protected.Post("/ml-accounts/{accountID}/refresh-metrics", s.handleRefreshOne)
		protected.Get("/ml-accounts/{accountID}/daily-metrics", s.handleDailyMetrics)
		protected.Post("/ml-accounts/refresh-all-metrics", s.handleRefreshAll)

		protected.Get("/mercadolibre/auth", s.handleMLAuth)
		protected.Get("/mercadolibre/callback", s.handleMLCallback)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required!")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error during registration")
		return
	}
	user, err := s.store.CreateUser(req.Username, string(hash))
	if err != nil {
		if errors.Is(err, storepkg.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "User already exists!")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error during registration")
		return
	}

	token, err := s.issueSession(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error during registration")
		return
	}
	s.setSessionCookie(w, token, s.cfg.SessionTTL)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "User registered successfully",
		"user_id":   user.ID,
		"username":  user.Username,
		"ml_linked": false,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required!")
		return
	}

	user, err := s.store.UserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.issueSession(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error during login")
		return
	}
	s.setSessionCookie(w, token, s.cfg.SessionTTL)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Logged in successfully",
		"user_id":   user.ID,
		"username":  user.Username,
		"ml_linked": s.mlLinked(user.ID),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if err := s.store.SetUserToken(user.ID, ""); err != nil {
		writeError(w, http.StatusInternalServerError, "Error during logout")
		return
	}
	s.setSessionCookie(w, "", -time.Second)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	payload := map[string]interface{}{
		"user_id":   user.ID,
		"username":  user.Username,
		"ml_linked": s.mlLinked(user.ID),
	}
	if user.CreatedAt != nil {
		payload["created_at"] = user.CreatedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accounts, err := s.store.ListAccounts(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error getting ML accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    len(accounts),
	})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	var update domain.AccountUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.store.UpdateAccountSettings(user.ID, accountID, update)
	if err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ML account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error updating ML account")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteAccount(user.ID, accountID); err != nil {
		if errors.Is(err, storepkg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ML account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error removing ML account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ML account removed successfully"})
}

func (s *Server) handleRefreshOne(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := s.store.AccountByID(user.ID, accountID)
	if err != nil {
		writeError(w, http.StatusNotFound, "ML account not found")
		return
	}

	updated, err := s.refreshAccountMetrics(r.Context(), account)
	if err != nil {
		if errors.Is(err, mercadolibre.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "Token expired, please reconnect account")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error refreshing metrics: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Metrics refreshed successfully",
		"account": updated,
	})
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accounts, err := s.store.ListAccounts(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error refreshing all metrics")
		return
	}

	total := 0
	updated := 0
	for _, account := range accounts {
		if !account.IsActive {
			continue
		}
		total++
		if _, err := s.refreshAccountMetrics(r.Context(), account); err == nil {
			updated++
		}
	}
	if failed := total - updated; failed > 0 {
		go func(failed, total int) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.notifier.RefreshFailures(ctx, failed, total)
		}(failed, total)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        fmt.Sprintf("Updated metrics for %d accounts", updated),
		"updated_count":  updated,
		"total_accounts": total,
	})
}

func (s *Server) handleDailyMetrics(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.AccountByID(user.ID, accountID); err != nil {
		writeError(w, http.StatusNotFound, "ML account not found")
		return
	}
	samples, err := s.store.ListDailyMetrics(accountID, 90)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error getting daily metrics")
		return
	}
	summary, err := s.trend.Summarize(samples)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error summarizing daily metrics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"metrics":    samples,
		"trend":      summary,
	})
}

func (s *Server) handleMLAuth(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if s.cfg.MLClientID == "" {
		writeError(w, http.StatusInternalServerError, "MercadoLibre linking is not configured")
		return
	}
	state := uuid.NewString()
	s.store.SaveLinkState(domain.LinkState{
		State:     state,
		UserID:    user.ID,
		CreatedAt: time.Now().UTC(),
	})
	authURL, err := s.mlOAuth.BuildAuthURL(state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build authorization URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"state":    state,
		"message":  "Redirect user to this URL to authorize Mercado Libre access",
	})
}

func (s *Server) handleMLCallback(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}
	link, err := s.store.ConsumeLinkState(state)
	if err != nil || link.UserID != user.ID {
		writeError(w, http.StatusBadRequest, "Invalid authorization state")
		return
	}

	tokens, err := s.mlOAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusBadGateway, "MercadoLibre token exchange failed")
		return
	}
	mlUserID := strconv.FormatInt(tokens.UserID, 10)
	info, err := s.ml.FetchUser(r.Context(), tokens.AccessToken, mlUserID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Could not fetch MercadoLibre profile")
		return
	}

	expiresAt := time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	account, err := s.store.UpsertAccount(domain.MLAccount{
		UserID:         user.ID,
		MLUserID:       mlUserID,
		Nickname:       info.Nickname,
		FirstName:      info.FirstName,
		LastName:       info.LastName,
		Email:          info.Email,
		CountryID:      info.CountryID,
		SiteID:         info.SiteID,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: &expiresAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error saving linked account")
		return
	}

	go func(nickname string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.notifier.AccountLinked(ctx, nickname)
	}(account.Nickname)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Account linked successfully",
		"account": account,
	})
}

// refreshAccountMetrics pulls fresh marketplace metrics for one account,
// renewing the access token once if it expired, then persists the cached
// metric fields and the daily sample.
func (s *Server) refreshAccountMetrics(ctx context.Context, account domain.MLAccount) (domain.MLAccount, error) {
	metrics, err := s.ml.FetchMetrics(ctx, account.AccessToken, account.MLUserID)
	if errors.Is(err, mercadolibre.ErrTokenExpired) && account.RefreshToken != "" {
		tokens, refreshErr := s.mlOAuth.Refresh(ctx, account.RefreshToken)
		if refreshErr != nil {
			// A failed renewal is still an expired-token outcome for the
			// caller: only relinking the account can recover it.
			return domain.MLAccount{}, fmt.Errorf("%w: %v", mercadolibre.ErrTokenExpired, refreshErr)
		}
		expiresAt := time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second)
		if saveErr := s.store.SaveAccountTokens(account.ID, tokens.AccessToken, tokens.RefreshToken, expiresAt); saveErr != nil {
			return domain.MLAccount{}, saveErr
		}
		account.AccessToken = tokens.AccessToken
		metrics, err = s.ml.FetchMetrics(ctx, account.AccessToken, account.MLUserID)
	}
	if err != nil {
		return domain.MLAccount{}, err
	}

	now := time.Now().UTC()
	if err := s.store.UpdateAccountMetrics(account.ID, metrics, now); err != nil {
		return domain.MLAccount{}, err
	}
	_ = s.store.SaveDailyMetrics(account.ID, domain.DailyMetrics{
		Date:        now.Format("2006-01-02"),
		DailySales:  metrics.TotalSales,
		DailyOrders: metrics.TotalOrders,
	})
	return s.store.AccountByID(account.UserID, account.ID)
}

func (s *Server) mlLinked(userID int64) bool {
	accounts, err := s.store.ListAccounts(userID)
	return err == nil && len(accounts) > 0
}

func (s *Server) issueSession(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().UTC().Add(s.cfg.SessionTTL).Unix(),
		"iat":     time.Now().UTC().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	if err := s.store.SetUserToken(userID, signed); err != nil {
		return "", err
	}
	return signed, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Domain:   s.cfg.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: sameSite,
	})
}

// requireUser accepts the session token from the x-access-token header or
// the token cookie. The token must both verify and match the one stored for
// the user, so logout invalidates every copy immediately.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("x-access-token")
		if token == "" {
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token is missing!")
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "Token expired, please login again!")
				return
			}
			writeError(w, http.StatusUnauthorized, "Token is invalid!")
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token is invalid!")
			return
		}
		rawID, _ := claims["user_id"].(float64)
		user, err := s.store.UserByID(int64(rawID))
		if err != nil || user.Token != token {
			writeError(w, http.StatusUnauthorized, "Token is invalid or expired!")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) domain.User {
	user, _ := ctx.Value(contextKeyUser).(domain.User)
	return user
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "accountID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid account id")
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

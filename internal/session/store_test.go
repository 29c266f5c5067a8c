package session

import (
	"context"
	"errors"
	"testing"

	"github.com/yerna09/smartselling/internal/client"
	"github.com/yerna09/smartselling/internal/domain"
)

type fakeAPI struct {
	profileErr error
	loginErr   error
	regErr     error
	logoutErr  error
	user       domain.User
}

func (f *fakeAPI) Profile(ctx context.Context) (domain.User, error) {
	if f.profileErr != nil {
		return domain.User{}, f.profileErr
	}
	return f.user, nil
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (domain.User, error) {
	if f.loginErr != nil {
		return domain.User{}, f.loginErr
	}
	return f.user, nil
}

func (f *fakeAPI) Register(ctx context.Context, username, password string) (domain.User, error) {
	if f.regErr != nil {
		return domain.User{}, f.regErr
	}
	return f.user, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error { return f.logoutErr }

type fakeCollection struct {
	loads   int
	resets  int
	loadErr error
}

func (f *fakeCollection) Load(ctx context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeCollection) Reset() { f.resets++ }

func TestInitialPhaseIsLoading(t *testing.T) {
	store := NewStore(&fakeAPI{}, &fakeCollection{})
	if store.Phase() != PhaseLoading {
		t.Fatalf("expected loading, got %s", store.Phase())
	}
}

func TestInitializeSuccessLoadsAccounts(t *testing.T) {
	col := &fakeCollection{}
	store := NewStore(&fakeAPI{user: domain.User{ID: 1, Username: "admin"}}, col)

	if got := store.Initialize(context.Background()); got != PhaseAuthenticated {
		t.Fatalf("expected authenticated, got %s", got)
	}
	if store.User().Username != "admin" {
		t.Fatalf("expected identity populated, got %+v", store.User())
	}
	if col.loads != 1 {
		t.Fatalf("expected one collection load, got %d", col.loads)
	}
}

func TestInitializeFailureSettlesAnonymous(t *testing.T) {
	col := &fakeCollection{}
	api := &fakeAPI{profileErr: &client.Error{Kind: client.KindHTTP, StatusCode: 401, Message: "Token is missing!"}}
	store := NewStore(api, col)

	if got := store.Initialize(context.Background()); got != PhaseAnonymous {
		t.Fatalf("expected anonymous, got %s", got)
	}
	if store.User() != (domain.User{}) {
		t.Fatal("expected identity cleared")
	}
	if col.loads != 0 {
		t.Fatal("no collection load without a session")
	}
}

func TestLoginInvalidCredentialsLeavesPhaseUnchanged(t *testing.T) {
	api := &fakeAPI{loginErr: &client.Error{Kind: client.KindHTTP, StatusCode: 401, Message: "Invalid credentials"}}
	store := NewStore(api, &fakeCollection{})
	store.transition(PhaseAnonymous, domain.User{})

	err := store.Login(context.Background(), "admin", "wrongpass")
	apiErr := &client.Error{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if apiErr.Kind != client.KindHTTP || apiErr.Message != "Invalid credentials" {
		t.Fatalf("expected distinguishable credentials failure, got %+v", apiErr)
	}
	if store.Phase() != PhaseAnonymous {
		t.Fatalf("failed login must not change phase, got %s", store.Phase())
	}
}

func TestLoginConnectionFailureIsDistinguishable(t *testing.T) {
	api := &fakeAPI{loginErr: &client.Error{Kind: client.KindConnection, Message: "could not reach the server"}}
	store := NewStore(api, &fakeCollection{})
	store.transition(PhaseAnonymous, domain.User{})

	err := store.Login(context.Background(), "admin", "pw")
	apiErr := &client.Error{}
	if !errors.As(err, &apiErr) || apiErr.Kind != client.KindConnection {
		t.Fatalf("expected connection-kind error, got %v", err)
	}
	if store.Phase() != PhaseAnonymous {
		t.Fatal("failed login must not change phase")
	}
}

func TestLoginSuccessAuthenticatesAndLoads(t *testing.T) {
	col := &fakeCollection{}
	store := NewStore(&fakeAPI{user: domain.User{ID: 2, Username: "seller"}}, col)
	store.transition(PhaseAnonymous, domain.User{})

	if err := store.Login(context.Background(), "seller", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if store.Phase() != PhaseAuthenticated {
		t.Fatalf("expected authenticated, got %s", store.Phase())
	}
	if col.loads != 1 {
		t.Fatalf("expected collection load after login, got %d", col.loads)
	}
}

func TestRegisterSeedsEmptyCollection(t *testing.T) {
	col := &fakeCollection{}
	store := NewStore(&fakeAPI{user: domain.User{ID: 3, Username: "new"}}, col)
	store.transition(PhaseAnonymous, domain.User{})

	if err := store.Register(context.Background(), "new", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if store.Phase() != PhaseAuthenticated {
		t.Fatal("expected authenticated after register")
	}
	if col.resets != 1 || col.loads != 0 {
		t.Fatalf("register seeds empty, never fetches: resets=%d loads=%d", col.resets, col.loads)
	}
}

func TestLogoutAlwaysGoesAnonymous(t *testing.T) {
	col := &fakeCollection{}
	api := &fakeAPI{user: domain.User{ID: 1, Username: "admin"}, logoutErr: errors.New("server on fire")}
	store := NewStore(api, col)
	store.transition(PhaseAuthenticated, api.user)

	store.Logout(context.Background())

	if store.Phase() != PhaseAnonymous {
		t.Fatalf("logout must be unconditionally anonymous, got %s", store.Phase())
	}
	if store.User() != (domain.User{}) {
		t.Fatal("expected identity cleared")
	}
	if col.resets != 1 {
		t.Fatalf("expected collection reset on logout, got %d", col.resets)
	}
}

func TestCollectionLoadFailureKeepsSession(t *testing.T) {
	col := &fakeCollection{loadErr: errors.New("list failed")}
	store := NewStore(&fakeAPI{user: domain.User{ID: 1, Username: "admin"}}, col)

	if got := store.Initialize(context.Background()); got != PhaseAuthenticated {
		t.Fatalf("a failed account load must not kill the session, got %s", got)
	}
}

package servicefake_test

import (
	"context"
	"testing"
	"time"

	"github.com/codeshare/appcore/identity"
	"github.com/codeshare/appcore/identity/servicefake"
	errs "github.com/codeshare/appcore/internal/errors"
	"github.com/codeshare/appcore/profiles/repofake"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	profileRepo *repofake.FakeProfileRepo
	svc         *servicefake.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	repo := repofake.NewFakeProfileRepo()
	return &testFixture{
		profileRepo: repo,
		svc:         servicefake.New(repo),
	}
}

func (f *testFixture) register(t *testing.T, identifier, secret string) *identity.Session {
	t.Helper()
	session, err := f.svc.SignUp(context.Background(), identifier, secret, identity.ProfileSeed{
		FullName: "Alice Johnson",
		Handle:   identifier,
	})
	require.NoError(t, err)
	return session
}

func TestSignUpCreatesProfileAndSession(t *testing.T) {
	f := setupTestFixture(t)

	session := f.register(t, "alice@example.com", "Passw0rd")
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.Subject)

	profile, err := f.profileRepo.GetByID(context.Background(), session.Subject)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", profile.Handle)
	require.Equal(t, "Alice Johnson", profile.FullName)

	claims, err := identity.ParseAccessToken(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, session.Subject, claims.Subject)
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.svc.SignUp(context.Background(), "alice@example.com", "weak", identity.ProfileSeed{})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrInvalidCredentials))
}

func TestSignUpRejectsDuplicateIdentifier(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alice@example.com", "Passw0rd")

	_, err := f.svc.SignUp(context.Background(), "alice@example.com", "Passw0rd", identity.ProfileSeed{})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.ErrInvalidCredentials))
}

func TestSignInWithCorrectCredentials(t *testing.T) {
	f := setupTestFixture(t)
	registered := f.register(t, "alice@example.com", "Passw0rd")
	require.NoError(t, f.svc.SignOut(context.Background()))

	session, err := f.svc.SignIn(context.Background(), "alice@example.com", "Passw0rd")
	require.NoError(t, err)
	require.Equal(t, registered.Subject, session.Subject)

	current, err := f.svc.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, registered.Subject, current.Subject)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t, "alice@example.com", "Passw0rd")

	tests := []struct {
		name       string
		identifier string
		secret     string
	}{
		{name: "wrong password", identifier: "alice@example.com", secret: "Wrong0pass"},
		{name: "unknown identifier", identifier: "bob@example.com", secret: "Passw0rd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SignIn(context.Background(), tc.identifier, tc.secret)
			require.Error(t, err)
			require.True(t, errs.Is(err, errs.ErrInvalidCredentials))
		})
	}
}

func TestCurrentSessionNilWhenSignedOut(t *testing.T) {
	f := setupTestFixture(t)

	session, err := f.svc.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestEventsEmittedInOrder(t *testing.T) {
	f := setupTestFixture(t)
	events, unsubscribe := f.svc.Subscribe()
	defer unsubscribe()

	f.register(t, "alice@example.com", "Passw0rd")
	require.NoError(t, f.svc.SignOut(context.Background()))
	_, err := f.svc.SignIn(context.Background(), "alice@example.com", "Passw0rd")
	require.NoError(t, err)

	wantKinds := []identity.EventKind{
		identity.EventSignedIn,
		identity.EventSignedOut,
		identity.EventSignedIn,
	}
	for _, want := range wantKinds {
		select {
		case ev := <-events:
			require.Equal(t, want, ev.Kind)
			if want == identity.EventSignedOut {
				require.Nil(t, ev.Session)
			} else {
				require.NotNil(t, ev.Session)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", want)
		}
	}
}

func TestUnsubscribeClosesStream(t *testing.T) {
	f := setupTestFixture(t)
	events, unsubscribe := f.svc.Subscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)
}

func TestExpireCurrentSession(t *testing.T) {
	f := setupTestFixture(t)
	events, unsubscribe := f.svc.Subscribe()
	defer unsubscribe()

	f.register(t, "alice@example.com", "Passw0rd")
	f.svc.ExpireCurrentSession()

	session, err := f.svc.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)

	<-events // signed_in
	select {
	case ev := <-events:
		require.Equal(t, identity.EventExpired, ev.Kind)
		require.Nil(t, ev.Session)
	case <-time.After(time.Second):
		t.Fatal("missing expired event")
	}
}

func TestEnsureRootAccount(t *testing.T) {
	f := setupTestFixture(t)
	const rootHandle = "root@example.com"

	require.NoError(t, f.svc.EnsureRootAccount(context.Background(), rootHandle, "Sup3rSecret", "Root Admin"))

	profile, err := f.profileRepo.GetByHandle(context.Background(), rootHandle)
	require.NoError(t, err)
	require.True(t, profile.IsAdmin)
	require.True(t, profile.IsVerified)

	// Idempotent across boots.
	require.NoError(t, f.svc.EnsureRootAccount(context.Background(), rootHandle, "Sup3rSecret", "Root Admin"))
	list, err := f.profileRepo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	session, err := f.svc.SignIn(context.Background(), rootHandle, "Sup3rSecret")
	require.NoError(t, err)
	require.Equal(t, profile.ID, session.Subject)
}

func TestFailCurrentSessionReturnsErrorOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.svc.FailCurrentSession = errs.ErrSessionUnavailable

	_, err := f.svc.CurrentSession(context.Background())
	require.True(t, errs.Is(err, errs.ErrSessionUnavailable))

	_, err = f.svc.CurrentSession(context.Background())
	require.NoError(t, err)
}

package sessionrepo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-erp-client/session"
	"github.com/jrsteele09/go-erp-client/session/sessionrepo"
)

const testNamespace = "school-erp-auth"

func testSession() *session.PersistedSession {
	return &session.PersistedSession{
		Principal: session.Principal{
			ID:       1,
			Username: "jdoe",
			Role:     session.RoleAdmin,
			SchoolID: 3,
		},
		Credential: session.Credential{AccessToken: "access", RefreshToken: "refresh"},
	}
}

// TestInMemoryRepo_RoundTrip tests write/read/clear on the in-memory repo
func TestInMemoryRepo_RoundTrip(t *testing.T) {
	repo := sessionrepo.NewInMemoryRepo()

	persisted, err := repo.Read()
	require.NoError(t, err)
	require.Nil(t, persisted, "empty repo reads as absent")

	require.NoError(t, repo.Write(testSession()))

	persisted, err = repo.Read()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "jdoe", persisted.Principal.Username)

	require.NoError(t, repo.Clear())

	persisted, err = repo.Read()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

// TestInMemoryRepo_ReadReturnsCopy tests that callers cannot mutate stored state
func TestInMemoryRepo_ReadReturnsCopy(t *testing.T) {
	repo := sessionrepo.NewInMemoryRepo()
	require.NoError(t, repo.Write(testSession()))

	first, err := repo.Read()
	require.NoError(t, err)
	first.Principal.Username = "tampered"

	second, err := repo.Read()
	require.NoError(t, err)
	require.Equal(t, "jdoe", second.Principal.Username)
}

// TestInMemoryRepo_RejectsNil tests nil-write validation
func TestInMemoryRepo_RejectsNil(t *testing.T) {
	repo := sessionrepo.NewInMemoryRepo()
	require.Error(t, repo.Write(nil))
}

// TestBBoltRepo_RoundTrip tests write/read/clear against a real database file
func TestBBoltRepo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	repo, err := sessionrepo.NewBBoltRepo(path, testNamespace)
	require.NoError(t, err)
	defer repo.Close()

	persisted, err := repo.Read()
	require.NoError(t, err)
	require.Nil(t, persisted)

	require.NoError(t, repo.Write(testSession()))

	persisted, err = repo.Read()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, session.RoleAdmin, persisted.Principal.Role)
	require.Equal(t, "refresh", persisted.Credential.RefreshToken)

	require.NoError(t, repo.Clear())

	persisted, err = repo.Read()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

// TestBBoltRepo_SurvivesReopen tests the reload-survival property the adapter exists for
func TestBBoltRepo_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	repo, err := sessionrepo.NewBBoltRepo(path, testNamespace)
	require.NoError(t, err)
	require.NoError(t, repo.Write(testSession()))
	require.NoError(t, repo.Close())

	reopened, err := sessionrepo.NewBBoltRepo(path, testNamespace)
	require.NoError(t, err)
	defer reopened.Close()

	persisted, err := reopened.Read()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	require.Equal(t, "jdoe", persisted.Principal.Username)
}

// TestBBoltRepo_NamespaceIsolation tests that repos with different namespaces do not see each other
func TestBBoltRepo_NamespaceIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	repo, err := sessionrepo.NewBBoltRepo(path, testNamespace)
	require.NoError(t, err)
	require.NoError(t, repo.Write(testSession()))
	require.NoError(t, repo.Close())

	other, err := sessionrepo.NewBBoltRepo(path, "another-app")
	require.NoError(t, err)
	defer other.Close()

	persisted, err := other.Read()
	require.NoError(t, err)
	require.Nil(t, persisted)
}

// TestBBoltRepo_RequiresNamespace tests constructor validation
func TestBBoltRepo_RequiresNamespace(t *testing.T) {
	_, err := sessionrepo.NewBBoltRepo(filepath.Join(t.TempDir(), "session.db"), "")
	require.Error(t, err)
}

// TestBBoltRepo_ClearOnEmptyIsNotAnError tests clearing before anything was written
func TestBBoltRepo_ClearOnEmptyIsNotAnError(t *testing.T) {
	repo, err := sessionrepo.NewBBoltRepo(filepath.Join(t.TempDir(), "session.db"), testNamespace)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Clear())
}

package sessionrepo

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-erp-client/session"
)

const sessionKey = "session"

// BBoltRepo is a durable session.Repo backed by a BBolt database. It is the
// process-restart analogue of the browser's persisted storage: a session
// written before shutdown hydrates the next run.
//
// The repo is scoped to a single bucket named after the storage namespace.
type BBoltRepo struct {
	db        *bbolt.DB
	namespace string
}

var _ session.Repo = (*BBoltRepo)(nil)

// NewBBoltRepo opens (or creates) a BBolt database at the given path and
// returns a repository scoped to the given namespace.
func NewBBoltRepo(path, namespace string) (*BBoltRepo, error) {
	if namespace == "" {
		return nil, errors.New("[NewBBoltRepo] namespace is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[NewBBoltRepo] opening bbolt db")
	}
	return &BBoltRepo{db: db, namespace: namespace}, nil
}

// Close closes the underlying database.
func (r *BBoltRepo) Close() error {
	return r.db.Close()
}

// Read returns the persisted session, or (nil, nil) when none exists.
// A session that fails to unmarshal reads as absent: corrupt persisted
// state must land the user unauthenticated, not crash the shell.
func (r *BBoltRepo) Read() (*session.PersistedSession, error) {
	var persisted *session.PersistedSession
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(r.namespace))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(sessionKey))
		if data == nil {
			return nil
		}
		var ps session.PersistedSession
		if err := json.Unmarshal(data, &ps); err != nil {
			return errors.Wrap(err, "unmarshalling persisted session")
		}
		persisted = &ps
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[BBoltRepo.Read]")
	}
	return persisted, nil
}

// Write stores or replaces the persisted session.
func (r *BBoltRepo) Write(persisted *session.PersistedSession) error {
	if persisted == nil {
		return errNilSession
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		return errors.Wrap(err, "[BBoltRepo.Write] marshalling session")
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(r.namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(sessionKey), data)
	})
	return errors.Wrap(err, "[BBoltRepo.Write]")
}

// Clear removes the persisted session. Clearing an empty store is not an error.
func (r *BBoltRepo) Clear() error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(r.namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(sessionKey))
	})
	return errors.Wrap(err, "[BBoltRepo.Clear]")
}

package session

// Repo is the persistence adapter the Store synchronizes with. It must
// survive a process restart and is scoped to one storage namespace.
//
// Read returns (nil, nil) when no session has been persisted.
type Repo interface {
	Read() (*PersistedSession, error)
	Write(persisted *PersistedSession) error
	Clear() error
}

package session

// State is a point-in-time snapshot of the session. Route guards and UI
// consumers read snapshots; they never see (or mutate) the Store's internals.
type State struct {
	Principal  *Principal  // nil when unauthenticated
	Credential *Credential // nil when unauthenticated
	Hydrated   bool        // true once the initial persistence read has completed
	LoggingIn  bool        // true while a login call is in flight
}

// Authenticated reports whether the snapshot holds a full session.
// Principal and Credential are always set or cleared together, but guards
// should not rely on that from the outside, so both are checked.
func (st State) Authenticated() bool {
	return st.Principal != nil && st.Credential != nil
}

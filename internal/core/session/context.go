package session

// LockMode is the lock level recorded for a loaded entity.
type LockMode int

const (
	// LockNone means no lock was requested.
	LockNone LockMode = iota
	// LockRead means the state was read within the current transaction.
	LockRead
	// LockPessimisticRead requests a shared lock.
	LockPessimisticRead
	// LockPessimisticWrite requests an exclusive lock.
	LockPessimisticWrite
)

// String implements fmt.Stringer.
func (m LockMode) String() string {
	switch m {
	case LockNone:
		return "NONE"
	case LockRead:
		return "READ"
	case LockPessimisticRead:
		return "PESSIMISTIC_READ"
	case LockPessimisticWrite:
		return "PESSIMISTIC_WRITE"
	default:
		return "UNKNOWN"
	}
}

// EntityEntry is the persistence-context record of one loaded entity.
type EntityEntry struct {
	Key      EntityKey
	Instance any
	LockMode LockMode
	ReadOnly bool
}

// PersistenceContext is the unit-of-work state of one session: the loaded
// entities and the batch-fetch queue. It is not safe for concurrent use.
type PersistenceContext struct {
	entries  map[EntityKey]*EntityEntry
	queue    *BatchFetchQueue
	readOnly bool
}

// NewPersistenceContext creates an empty context. defaultReadOnly applies to
// loads that do not carry their own read-only hint.
func NewPersistenceContext(defaultReadOnly bool) *PersistenceContext {
	return &PersistenceContext{
		entries:  make(map[EntityKey]*EntityEntry),
		queue:    NewBatchFetchQueue(),
		readOnly: defaultReadOnly,
	}
}

// Queue returns the batch-fetch queue owned by this context.
func (pc *PersistenceContext) Queue() *BatchFetchQueue {
	return pc.queue
}

// DefaultReadOnly returns the session-wide read-only default.
func (pc *PersistenceContext) DefaultReadOnly() bool {
	return pc.readOnly
}

// AddEntity publishes instance under key. If the key is already loaded the
// existing entry is kept and only its lock mode is upgraded; the returned
// entry is the one now held by the context.
func (pc *PersistenceContext) AddEntity(key EntityKey, instance any, lock LockMode, readOnly bool) *EntityEntry {
	if entry, ok := pc.entries[key]; ok {
		if lock > entry.LockMode {
			entry.LockMode = lock
		}
		return entry
	}

	entry := &EntityEntry{
		Key:      key,
		Instance: instance,
		LockMode: lock,
		ReadOnly: readOnly,
	}
	pc.entries[key] = entry
	pc.queue.Remove(key)
	return entry
}

// Entry returns the entry for key, if loaded.
func (pc *PersistenceContext) Entry(key EntityKey) (*EntityEntry, bool) {
	entry, ok := pc.entries[key]
	return entry, ok
}

// Entity returns the loaded instance for key, or nil.
func (pc *PersistenceContext) Entity(key EntityKey) any {
	if entry, ok := pc.entries[key]; ok {
		return entry.Instance
	}
	return nil
}

// Contains reports whether key is loaded.
func (pc *PersistenceContext) Contains(key EntityKey) bool {
	_, ok := pc.entries[key]
	return ok
}

// Remove evicts key from the context and from the queue.
func (pc *PersistenceContext) Remove(key EntityKey) {
	delete(pc.entries, key)
	pc.queue.Remove(key)
}

// Len returns the number of loaded entities.
func (pc *PersistenceContext) Len() int {
	return len(pc.entries)
}

// Clear drops all loaded entities and pending keys.
func (pc *PersistenceContext) Clear() {
	pc.entries = make(map[EntityKey]*EntityEntry)
	pc.queue.Clear()
}

package session

// Repo defines the interface for durable session storage. Exactly one record
// exists at a time; Save fully replaces it (no merge).
type Repo interface {
	// Save persists the record, replacing any previous one.
	Save(record *Record) error

	// Load reads the persisted record. It returns (nil, nil) when no record
	// exists and an error wrapping errors.ErrMalformedSession when a record
	// exists but cannot be decoded.
	Load() (*Record, error)

	// Clear removes the persisted record. Clearing an absent record is not
	// an error.
	Clear() error
}

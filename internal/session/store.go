package session

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/logging"
)

// SchemaVersion is the version written into every saved document.
const SchemaVersion = 1

// document is the on-disk envelope.
type document struct {
	Version  int                `json:"version"`
	Sessions map[string]*Record `json:"sessions"`
}

// Store is the durable name -> Record mapping. Every mutation is a full
// read-modify-write of the document under a single writer lock, so a
// successful write never loses a concurrent one.
type Store struct {
	backend  Backend
	location string
	mu       sync.Mutex
}

// New creates a store on top of backend.
func New(backend Backend) *Store {
	loc := "session store"
	if s, ok := backend.(fmt.Stringer); ok {
		loc = s.String()
	}
	return &Store{backend: backend, location: loc}
}

// Open creates a store persisted to the file at path.
func Open(path string) *Store {
	return New(NewFileBackend(path))
}

// Location describes where the store is persisted.
func (s *Store) Location() string {
	return s.location
}

// Load reads the full mapping. An empty backend yields an empty mapping;
// data that cannot be parsed yields StoreCorrupt.
func (s *Store) Load() (map[string]*Record, error) {
	data, err := s.backend.Read()
	if err != nil {
		if stderrors.Is(err, ErrEmpty) {
			return map[string]*Record{}, nil
		}
		return nil, errors.StoreCorrupt(s.location, err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) (map[string]*Record, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, errors.StoreCorrupt(s.location, err)
	}
	if top == nil {
		return nil, errors.StoreCorrupt(s.location, fmt.Errorf("document is not an object"))
	}

	var sessions map[string]*Record
	if isEnvelope(top) {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.StoreCorrupt(s.location, err)
		}
		if doc.Version > SchemaVersion {
			return nil, errors.StoreCorrupt(s.location, fmt.Errorf("unsupported schema version %d", doc.Version))
		}
		sessions = doc.Sessions
	} else {
		migrated, err := migrateLegacy(top)
		if err != nil {
			return nil, errors.StoreCorrupt(s.location, err)
		}
		if len(migrated) > 0 {
			logging.Debug("migrated legacy session store", "path", s.location, "records", len(migrated))
		}
		sessions = migrated
	}

	out := make(map[string]*Record, len(sessions))
	for name, rec := range sessions {
		if rec == nil {
			return nil, errors.StoreCorrupt(s.location, fmt.Errorf("record %q is null", name))
		}
		rec.Name = name
		if err := rec.Validate(); err != nil {
			return nil, errors.StoreCorrupt(s.location, fmt.Errorf("record %q: %w", name, err))
		}
		out[name] = rec
	}
	return out, nil
}

// Save replaces the persisted mapping with m.
func (s *Store) Save(m map[string]*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockBackend()
	if err != nil {
		return errors.StoreWriteFailure("save", "", err)
	}
	defer unlock()

	return s.write("save", "", m)
}

func (s *Store) write(op, name string, m map[string]*Record) error {
	doc := document{Version: SchemaVersion, Sessions: m}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.StoreWriteFailure(op, name, err)
	}
	data = append(data, '\n')
	if err := s.backend.AtomicWrite(data); err != nil {
		return errors.StoreWriteFailure(op, name, err)
	}
	return nil
}

func (s *Store) lockBackend() (func(), error) {
	if l, ok := s.backend.(Locker); ok {
		return l.Lock()
	}
	return func() {}, nil
}

// Mutate runs fn against the current mapping and persists the result
// unless fn returns an error. The whole cycle holds the writer lock.
func (s *Store) Mutate(op, name string, fn func(m map[string]*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockBackend()
	if err != nil {
		return errors.StoreWriteFailure(op, name, err)
	}
	defer unlock()

	m, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.write(op, name, m)
}

// Get returns a copy of the record for name.
func (s *Store) Get(name string) (*Record, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	rec, ok := m[name]
	if !ok {
		return nil, errors.NotFound("get", name)
	}
	return rec, nil
}

// Insert adds rec, failing with NameConflict if the name is taken.
func (s *Store) Insert(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return errors.ValidationError(err.Error())
	}
	return s.Mutate("insert", rec.Name, func(m map[string]*Record) error {
		if _, exists := m[rec.Name]; exists {
			return errors.NameConflict(rec.Name)
		}
		m[rec.Name] = rec.Clone()
		return nil
	})
}

// Upsert creates or replaces the record for rec.Name.
func (s *Store) Upsert(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return errors.ValidationError(err.Error())
	}
	return s.Mutate("upsert", rec.Name, func(m map[string]*Record) error {
		m[rec.Name] = rec.Clone()
		return nil
	})
}

// Update applies fn to the existing record for name and persists it.
func (s *Store) Update(name string, fn func(rec *Record) error) (*Record, error) {
	var updated *Record
	err := s.Mutate("update", name, func(m map[string]*Record) error {
		rec, ok := m[name]
		if !ok {
			return errors.NotFound("update", name)
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.Name = name
		if err := rec.Validate(); err != nil {
			return errors.ValidationError(err.Error())
		}
		updated = rec.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

var errAbsent = stderrors.New("record absent")

// Remove deletes the record for name. Removing an absent name is not an
// error and does not write.
func (s *Store) Remove(name string) error {
	err := s.Mutate("remove", name, func(m map[string]*Record) error {
		if _, ok := m[name]; !ok {
			return errAbsent
		}
		delete(m, name)
		return nil
	})
	if stderrors.Is(err, errAbsent) {
		return nil
	}
	return err
}

// List returns every record sorted by name.
func (s *Store) List() ([]*Record, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

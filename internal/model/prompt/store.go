package prompt

// Store exposes prompt pack lookup for services and handlers.
type Store interface {
	List() []Pack
	Find(locale string) (Pack, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Pack
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied packs.
func NewMemoryStore(items []Pack) *MemoryStore {
	return &MemoryStore{items: append([]Pack(nil), items...)}
}

// List returns the configured packs.
func (s *MemoryStore) List() []Pack {
	return append([]Pack(nil), s.items...)
}

// Find looks up a pack by locale.
func (s *MemoryStore) Find(locale string) (Pack, bool) {
	for _, item := range s.items {
		if item.Locale == locale {
			return item, true
		}
	}
	return Pack{}, false
}

package registry

import (
	"sync"
	"time"
)

// SourceInfo holds liveness information about one sensor source.
type SourceInfo struct {
	SourceID      string
	Location      string
	FirstSeen     time.Time
	LastHeardFrom time.Time
	Readings      int64
	mu            sync.RWMutex
}

// touch updates the last activity timestamp and the reading counter.
func (s *SourceInfo) touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeardFrom = at
	s.Readings++
}

// GetLastHeardFrom returns the last activity timestamp.
func (s *SourceInfo) GetLastHeardFrom() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastHeardFrom
}

// GetReadings returns the number of readings seen from this source.
func (s *SourceInfo) GetReadings() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Readings
}

// Registry tracks which sensor sources have been heard from and when, so
// a service can log sources that went quiet. Registration is implicit:
// the first reading from a source registers it.
type Registry struct {
	sources map[string]*SourceInfo // key: source_id
	mu      sync.RWMutex
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*SourceInfo),
	}
}

// Touch records activity from a source, registering it on first sight.
func (r *Registry) Touch(sourceID, location string) {
	now := time.Now()

	r.mu.RLock()
	source, exists := r.sources[sourceID]
	r.mu.RUnlock()

	if exists {
		source.touch(now)
		return
	}

	r.mu.Lock()
	// Re-check under the write lock, a concurrent Touch may have won.
	if source, exists = r.sources[sourceID]; !exists {
		source = &SourceInfo{
			SourceID:  sourceID,
			Location:  location,
			FirstSeen: now,
		}
		r.sources[sourceID] = source
	}
	r.mu.Unlock()

	source.touch(now)
}

// Get retrieves source information by source ID.
func (r *Registry) Get(sourceID string) (*SourceInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.sources[sourceID]
	return source, exists
}

// StaleSources returns the IDs of sources not heard from within the
// given duration.
func (r *Registry) StaleSources(timeout time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var stale []string

	for sourceID, source := range r.sources {
		if now.Sub(source.GetLastHeardFrom()) > timeout {
			stale = append(stale, sourceID)
		}
	}

	return stale
}

// Count returns the number of known sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Stats returns statistics about the registry.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, source := range r.sources {
		total += source.GetReadings()
	}

	return RegistryStats{
		KnownSources:  len(r.sources),
		TotalReadings: total,
	}
}

// RegistryStats contains statistics about the source registry.
type RegistryStats struct {
	KnownSources  int
	TotalReadings int64
}

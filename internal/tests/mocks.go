package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ridebid/internal/domain"
	"ridebid/internal/redis"
	"ridebid/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockRequestRepository is a mock implementation of RequestRepository.
// It enforces the same optimistic-version semantics as the real store.
type MockRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.RideRequest

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	GetError    error
}

// NewMockRequestRepository creates a new mock request repository.
func NewMockRequestRepository() *MockRequestRepository {
	return &MockRequestRepository{
		requests: make(map[string]*domain.RideRequest),
	}
}

// AddRequest seeds a request into the mock repository.
func (m *MockRequestRepository) AddRequest(req *domain.RideRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.RideRequest) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneRequest(req)
	m.requests[req.ID] = cp
	return nil
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRequest(req), nil
}

func (m *MockRequestRepository) GetByIDs(ctx context.Context, ids []string, status domain.RequestStatus) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.RideRequest
	for _, id := range ids {
		if req, ok := m.requests[id]; ok && req.Status == status {
			result = append(result, cloneRequest(req))
		}
	}
	return result, nil
}

func (m *MockRequestRepository) List(ctx context.Context, filter repository.ListFilter, limit, offset int) ([]*domain.RideRequest, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matching []*domain.RideRequest
	for _, req := range m.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		matching = append(matching, req)
	}
	// Newest first.
	for i := 0; i < len(matching); i++ {
		for j := i + 1; j < len(matching); j++ {
			if matching[j].CreatedAt.After(matching[i].CreatedAt) {
				matching[i], matching[j] = matching[j], matching[i]
			}
		}
	}

	total := len(matching)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*domain.RideRequest, 0, end-offset)
	for _, req := range matching[offset:end] {
		page = append(page, cloneRequest(req))
	}
	return page, total, nil
}

func (m *MockRequestRepository) ListByUser(ctx context.Context, scope repository.UserScope) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.RideRequest
	for _, req := range m.requests {
		if scope.IsDriver {
			if req.Driver.DriverID != scope.UserID {
				continue
			}
		} else if req.RequesterID != scope.UserID {
			continue
		}

		switch scope.Filter {
		case "history":
			if !req.Status.IsTerminal() {
				continue
			}
		case "running":
			if req.Status.IsTerminal() {
				continue
			}
		}
		result = append(result, cloneRequest(req))
	}
	return result, nil
}

func (m *MockRequestRepository) Update(ctx context.Context, req *domain.RideRequest) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[req.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != req.Version {
		return repository.ErrVersionConflict
	}
	cp := cloneRequest(req)
	cp.Version++
	m.requests[req.ID] = cp
	req.Version++
	return nil
}

// GetRequest returns the stored request for test assertions.
func (m *MockRequestRepository) GetRequest(id string) *domain.RideRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil
	}
	return cloneRequest(req)
}

func cloneRequest(req *domain.RideRequest) *domain.RideRequest {
	cp := *req
	cp.Bids = make([]domain.Bid, len(req.Bids))
	copy(cp.Bids, req.Bids)
	return &cp
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver seeds a driver into the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *driver
	return &cp, nil
}

// ──────────────────────────────────────────────
// MOCK REQUEST GEO INDEX
// ──────────────────────────────────────────────

// MockGeoIndex is a mock implementation of the request geo index. It does
// no real distance math: Search returns every member of the partition.
type MockGeoIndex struct {
	mu      sync.RWMutex
	entries map[redis.GeoKey]map[string]redis.GeoEntry

	// Error injection
	AddError    error
	RemoveError error
	SearchError error
}

// NewMockGeoIndex creates a new mock geo index.
func NewMockGeoIndex() *MockGeoIndex {
	return &MockGeoIndex{
		entries: make(map[redis.GeoKey]map[string]redis.GeoEntry),
	}
}

func (m *MockGeoIndex) Add(ctx context.Context, key redis.GeoKey, requestID string, lat, lng float64) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[key] == nil {
		m.entries[key] = make(map[string]redis.GeoEntry)
	}
	m.entries[key][requestID] = redis.GeoEntry{MemberID: requestID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockGeoIndex) Remove(ctx context.Context, key redis.GeoKey, requestID string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[key], requestID)
	return nil
}

func (m *MockGeoIndex) Search(ctx context.Context, key redis.GeoKey, lat, lng, radiusKm float64, limit int) ([]redis.GeoEntry, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []redis.GeoEntry
	for _, e := range m.entries[key] {
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// HasEntry reports whether the partition contains the member.
func (m *MockGeoIndex) HasEntry(key redis.GeoKey, requestID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key][requestID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PRESENCE STORE
// ──────────────────────────────────────────────

// MockPresenceStore is a mock implementation of the driver presence store.
type MockPresenceStore struct {
	mu       sync.RWMutex
	sessions map[redis.GeoKey][]domain.DriverPresence

	// Error injection
	FindNearbyError error
}

// NewMockPresenceStore creates a new mock presence store.
func NewMockPresenceStore() *MockPresenceStore {
	return &MockPresenceStore{
		sessions: make(map[redis.GeoKey][]domain.DriverPresence),
	}
}

func (m *MockPresenceStore) Update(ctx context.Context, key redis.GeoKey, sessionID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions[key] {
		if s.SessionID == sessionID {
			m.sessions[key][i].Lat = lat
			m.sessions[key][i].Lng = lng
			return nil
		}
	}
	m.sessions[key] = append(m.sessions[key], domain.DriverPresence{SessionID: sessionID, Lat: lat, Lng: lng})
	return nil
}

func (m *MockPresenceStore) Remove(ctx context.Context, key redis.GeoKey, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := m.sessions[key]
	for i, s := range sessions {
		if s.SessionID == sessionID {
			m.sessions[key] = append(sessions[:i], sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockPresenceStore) FindNearby(ctx context.Context, key redis.GeoKey, lat, lng, radiusKm float64, limit int) ([]domain.DriverPresence, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := m.sessions[key]
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	result := make([]domain.DriverPresence, len(sessions))
	copy(result, sessions)
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRequestLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[requestID]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[requestID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRequestLock(ctx context.Context, requestID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, requestID)
	return nil
}

// IsLocked checks if a request is locked (for test assertions).
func (m *MockLockStore) IsLocked(requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[requestID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent records one Publish call.
type PublishedEvent struct {
	Topic   string
	Event   string
	Payload any
}

// MockPublisher is a mock implementation of the event publisher.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic, event string, payload any) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Topic: topic, Event: event, Payload: payload})
	return nil
}

// Events returns a snapshot of everything published so far.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PublishedEvent, len(m.events))
	copy(result, m.events)
	return result
}

// EventsNamed returns published events with the given event name.
func (m *MockPublisher) EventsNamed(event string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []PublishedEvent
	for _, e := range m.events {
		if e.Event == event {
			result = append(result, e)
		}
	}
	return result
}

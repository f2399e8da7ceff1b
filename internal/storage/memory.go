package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prasenjit/go-mockapi/internal/models"
)

// MemoryStorage implements Storage interface with in-memory storage
type MemoryStorage struct {
	mu          sync.RWMutex
	collections map[string]*models.Collection
	endpoints   map[string]*models.Endpoint
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		collections: make(map[string]*models.Collection),
		endpoints:   make(map[string]*models.Endpoint),
	}
}

// CreateCollection stores a collection and the endpoints it carries
func (m *MemoryStorage) CreateCollection(c *models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[c.ID]; exists {
		return fmt.Errorf("collection %s: %w", c.ID, ErrAlreadyExists)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	for _, ep := range c.Endpoints {
		if _, exists := m.endpoints[ep.ID]; exists {
			return fmt.Errorf("endpoint %s: %w", ep.ID, ErrAlreadyExists)
		}
	}

	stampCollection(c)
	for _, ep := range c.Endpoints {
		ep.CollectionID = c.ID
		stampEndpoint(ep)
		m.endpoints[ep.ID] = ep
	}

	stored := *c
	stored.Endpoints = nil
	m.collections[c.ID] = &stored
	return nil
}

// GetCollection retrieves a collection by ID with its endpoints
func (m *MemoryStorage) GetCollection(id string) (*models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.collections[id]
	if !exists {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}

	result := *c
	result.Endpoints = m.endpointsOf(id)
	return &result, nil
}

// GetAllCollections retrieves all collections, without endpoints, sorted by name
func (m *MemoryStorage) GetAllCollections() ([]*models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	collections := make([]*models.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		collections = append(collections, c)
	}

	sort.Slice(collections, func(i, j int) bool {
		if collections[i].Name != collections[j].Name {
			return collections[i].Name < collections[j].Name
		}
		return collections[i].ID < collections[j].ID
	})

	return collections, nil
}

// CreateEndpoint stores an endpoint. Its collection must exist when set.
func (m *MemoryStorage) CreateEndpoint(ep *models.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.endpoints[ep.ID]; exists {
		return fmt.Errorf("endpoint %s: %w", ep.ID, ErrAlreadyExists)
	}
	if ep.CollectionID != "" {
		if _, exists := m.collections[ep.CollectionID]; !exists {
			return fmt.Errorf("collection %s: %w", ep.CollectionID, ErrNotFound)
		}
	}
	if err := ep.Validate(); err != nil {
		return err
	}

	stampEndpoint(ep)
	m.endpoints[ep.ID] = ep
	return nil
}

// GetEndpoint retrieves an endpoint by ID
func (m *MemoryStorage) GetEndpoint(id string) (*models.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ep, exists := m.endpoints[id]
	if !exists {
		return nil, fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}

	return ep, nil
}

// GetEndpointsByCollection retrieves all endpoints of a collection
func (m *MemoryStorage) GetEndpointsByCollection(collectionID string) ([]*models.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.collections[collectionID]; !exists {
		return nil, fmt.Errorf("collection %s: %w", collectionID, ErrNotFound)
	}

	return m.endpointsOf(collectionID), nil
}

// GetAllEndpoints retrieves all endpoints
func (m *MemoryStorage) GetAllEndpoints() ([]*models.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eps := make([]*models.Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		eps = append(eps, ep)
	}
	sortEndpoints(eps)

	return eps, nil
}

// Close closes the storage (no-op for memory storage)
func (m *MemoryStorage) Close() error {
	return nil
}

// endpointsOf must be called with the lock held
func (m *MemoryStorage) endpointsOf(collectionID string) []*models.Endpoint {
	eps := make([]*models.Endpoint, 0)
	for _, ep := range m.endpoints {
		if ep.CollectionID == collectionID {
			eps = append(eps, ep)
		}
	}
	sortEndpoints(eps)
	return eps
}

// sortEndpoints orders by path, then method
func sortEndpoints(eps []*models.Endpoint) {
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Path != eps[j].Path {
			return eps[i].Path < eps[j].Path
		}
		return eps[i].Method < eps[j].Method
	})
}

func stampCollection(c *models.Collection) {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
}

func stampEndpoint(ep *models.Endpoint) {
	ep.ApplyDefaults()
	now := time.Now()
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	if ep.UpdatedAt.IsZero() {
		ep.UpdatedAt = ep.CreatedAt
	}
}

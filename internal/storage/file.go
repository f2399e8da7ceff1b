package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-mockapi/internal/models"
)

// FileStorage implements Storage interface with one YAML file per collection
type FileStorage struct {
	mu       sync.RWMutex
	basePath string
	memory   *MemoryStorage
	logger   *zap.Logger
	onReload []func()
}

// NewFileStorage creates a file-based storage and loads existing collections
func NewFileStorage(basePath string, logger *zap.Logger) (*FileStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}

	fs := &FileStorage{
		basePath: basePath,
		logger:   logger,
	}

	if err := fs.Reload(); err != nil {
		return nil, err
	}

	return fs, nil
}

// Reload rereads every collection file and atomically replaces the loaded set.
// Files that fail to parse are logged and skipped.
func (f *FileStorage) Reload() error {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return err
	}

	memory := NewMemoryStorage()
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(f.basePath, entry.Name())
		c, err := readCollection(path)
		if err != nil {
			f.logger.Warn("skipping collection file", zap.String("file", path), zap.Error(err))
			continue
		}
		if err := memory.CreateCollection(c); err != nil {
			f.logger.Warn("skipping collection file", zap.String("file", path), zap.Error(err))
			continue
		}
	}

	collections, endpoints := len(memory.collections), len(memory.endpoints)

	f.mu.Lock()
	f.memory = memory
	hooks := f.onReload
	f.mu.Unlock()

	f.logger.Debug("collections loaded", zap.String("path", f.basePath), zap.Int("collections", collections), zap.Int("endpoints", endpoints))

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// OnReload registers fn to run after every successful Reload
func (f *FileStorage) OnReload(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReload = append(f.onReload, fn)
}

// readCollection parses a collection file. A missing collection ID defaults
// to the file name and missing endpoint IDs are derived from method and path.
func readCollection(path string) (*models.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c models.Collection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	if c.ID == "" {
		c.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	for _, ep := range c.Endpoints {
		if ep == nil {
			return nil, errors.New("empty endpoint entry")
		}
		if ep.ID == "" {
			ep.ID = EndpointID(c.ID, ep.Method, ep.Path)
		}
	}

	return &c, nil
}

// EndpointID derives a stable endpoint ID from its collection, method and path
func EndpointID(collectionID, method, path string) string {
	name := collectionID + " " + strings.ToUpper(method) + " " + path
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (f *FileStorage) current() *MemoryStorage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.memory
}

// CreateCollection creates a collection and writes its file
func (f *FileStorage) CreateCollection(c *models.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.CreateCollection(c); err != nil {
		return err
	}

	return f.writeLocked(c.ID)
}

// GetCollection retrieves a collection by ID
func (f *FileStorage) GetCollection(id string) (*models.Collection, error) {
	return f.current().GetCollection(id)
}

// GetAllCollections retrieves all collections
func (f *FileStorage) GetAllCollections() ([]*models.Collection, error) {
	return f.current().GetAllCollections()
}

// CreateEndpoint adds an endpoint to an existing collection and rewrites its file
func (f *FileStorage) CreateEndpoint(ep *models.Endpoint) error {
	if ep.CollectionID == "" {
		return errors.New("file storage endpoints need a collection")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.CreateEndpoint(ep); err != nil {
		return err
	}

	return f.writeLocked(ep.CollectionID)
}

// GetEndpoint retrieves an endpoint by ID
func (f *FileStorage) GetEndpoint(id string) (*models.Endpoint, error) {
	return f.current().GetEndpoint(id)
}

// GetEndpointsByCollection retrieves all endpoints of a collection
func (f *FileStorage) GetEndpointsByCollection(collectionID string) ([]*models.Endpoint, error) {
	return f.current().GetEndpointsByCollection(collectionID)
}

// GetAllEndpoints retrieves all endpoints
func (f *FileStorage) GetAllEndpoints() ([]*models.Endpoint, error) {
	return f.current().GetAllEndpoints()
}

// Close closes the storage
func (f *FileStorage) Close() error {
	return nil
}

// writeLocked saves a collection while f.mu is held
func (f *FileStorage) writeLocked(id string) error {
	c, err := f.memory.GetCollection(id)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(f.basePath, id+".yaml"), data, 0644)
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

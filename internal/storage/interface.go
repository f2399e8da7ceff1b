package storage

import (
	"errors"

	"github.com/prasenjit/go-mockapi/internal/models"
)

var (
	// ErrNotFound is returned when a collection or endpoint does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a record whose ID is taken
	ErrAlreadyExists = errors.New("already exists")
)

// Storage is the configuration store the mock server reads endpoints from
type Storage interface {
	// Collection operations
	CreateCollection(c *models.Collection) error
	GetCollection(id string) (*models.Collection, error)
	GetAllCollections() ([]*models.Collection, error)

	// Endpoint operations
	CreateEndpoint(ep *models.Endpoint) error
	GetEndpoint(id string) (*models.Endpoint, error)
	GetEndpointsByCollection(collectionID string) ([]*models.Endpoint, error)
	GetAllEndpoints() ([]*models.Endpoint, error)

	// Utility
	Close() error
}

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yndnr/crudkv-go/internal/core/domain"
	"github.com/yndnr/crudkv-go/internal/storage"
)

// MaxIDAttempts bounds identifier generation when a fresh id collides with
// an existing record.
const MaxIDAttempts = 3

// ResourceRepository is the storage the service needs. *storage.Engine
// implements it.
type ResourceRepository interface {
	Put(ctx context.Context, id string, value []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	Keys(ctx context.Context) ([]string, error)
	Entries(ctx context.Context) (map[string][]byte, error)
	Has(ctx context.Context, id string) (bool, error)
}

// ResourceService handles resource CRUD.
type ResourceService struct {
	repo  ResourceRepository
	newID func() string
}

// Option configures a ResourceService.
type Option func(*ResourceService)

// WithIDGenerator replaces the identifier generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *ResourceService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewResourceService creates a new ResourceService.
func NewResourceService(repo ResourceRepository, opts ...Option) *ResourceService {
	s := &ResourceService{
		repo:  repo,
		newID: NewResourceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewResourceID returns a random version 4 UUID in canonical form.
func NewResourceID() string {
	return uuid.NewString()
}

// List returns every resource identifier.
func (s *ResourceService) List(ctx context.Context) ([]string, error) {
	keys, err := s.repo.Keys(ctx)
	if err != nil {
		return nil, MapStorageError(err)
	}
	return keys, nil
}

// ListFull returns every resource with its value.
func (s *ResourceService) ListFull(ctx context.Context) (map[string][]byte, error) {
	entries, err := s.repo.Entries(ctx)
	if err != nil {
		return nil, MapStorageError(err)
	}
	return entries, nil
}

// Create stores value under a newly allocated identifier and returns it.
// A generated identifier that already exists is discarded and another one
// is drawn, so Create never overwrites an existing resource.
func (s *ResourceService) Create(ctx context.Context, value []byte) (string, error) {
	for attempt := 0; attempt < MaxIDAttempts; attempt++ {
		id := s.newID()

		exists, err := s.repo.Has(ctx, id)
		if err != nil {
			return "", MapStorageError(err)
		}
		if exists {
			continue
		}

		if err := s.repo.Put(ctx, id, value); err != nil {
			return "", MapStorageError(err)
		}
		return id, nil
	}
	return "", domain.ErrResourceIDExhausted
}

// Get returns the value stored under id.
func (s *ResourceService) Get(ctx context.Context, id string) ([]byte, error) {
	value, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, MapStorageError(err).WithDetails("id=" + id)
	}
	return value, nil
}

// Put creates or replaces the resource id.
func (s *ResourceService) Put(ctx context.Context, id string, value []byte) error {
	if err := s.repo.Put(ctx, id, value); err != nil {
		return MapStorageError(err).WithDetails("id=" + id)
	}
	return nil
}

// Delete removes the resource id.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return MapStorageError(err).WithDetails("id=" + id)
	}
	return nil
}

// MapStorageError translates a storage error into a domain error. The
// original error is kept as the cause.
func MapStorageError(err error) *domain.DomainError {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}

	switch storage.KindOf(err) {
	case storage.ErrNotFound:
		return domain.ErrResourceNotFound.WithCause(err)
	case storage.ErrWrite:
		return domain.ErrStorageWrite.WithCause(err)
	case storage.ErrInitialization:
		return domain.ErrServiceUnavailable.WithCause(err)
	default:
		return domain.ErrInternal.WithCause(err)
	}
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"meshpm/internal/config"
	"meshpm/internal/fileutil"
)

// jsonStore persists services as a single JSON document. The daemon holds an
// exclusive lock on the base directory, so the document is loaded once and
// written through on every mutation.
type jsonStore struct {
	mu   sync.Mutex
	path string
	doc  Document
}

// OpenJSONFile connects to the JSON-file backend at path. A missing file is
// an empty store; the file is created on the first mutation.
func OpenJSONFile(path string) (Store, error) {
	s := &jsonStore{path: path, doc: Document{Version: documentVersion, NextID: 1}}

	exists, err := fileutil.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("probe data file: %w", err)
	}
	if exists {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.doc); err != nil {
				return nil, fmt.Errorf("parse data file %s: %w", path, err)
			}
		}
		if s.doc.Version == 0 {
			s.doc.Version = documentVersion
		}
		if s.doc.Version != documentVersion {
			return nil, fmt.Errorf("%w: %d (expected %d)", ErrDocumentVersion, s.doc.Version, documentVersion)
		}
	}

	// Heal the id counter, older writers did not record it.
	for _, svc := range s.doc.Services {
		if svc.ID >= s.doc.NextID {
			s.doc.NextID = svc.ID + 1
		}
	}
	if s.doc.NextID < 1 {
		s.doc.NextID = 1
	}

	return s, nil
}

func (s *jsonStore) Backend() string { return config.BackendJSONFile }

func (s *jsonStore) Path() string { return s.path }

func (s *jsonStore) Close() error { return nil }

// Services returns all registered services ordered by id.
func (s *jsonStore) Services(ctx context.Context) ([]Service, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	services := make([]Service, 0, len(s.doc.Services))
	for _, rec := range s.doc.Services {
		services = append(services, fromDocument(rec))
	}
	return services, nil
}

// Service fetches a service by identifier. A missing id yields (nil, nil).
func (s *jsonStore) Service(ctx context.Context, id int64) (*Service, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.doc.Services {
		if rec.ID == id {
			svc := fromDocument(rec)
			return &svc, nil
		}
	}
	return nil, nil
}

// ServiceByName fetches a service by name. A missing name yields (nil, nil).
func (s *jsonStore) ServiceByName(ctx context.Context, name string) (*Service, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.doc.Services {
		if rec.Name == name {
			svc := fromDocument(rec)
			return &svc, nil
		}
	}
	return nil, nil
}

// CreateService registers a new service. Duplicate names fail with
// ErrServiceExists.
func (s *jsonStore) CreateService(ctx context.Context, name, command string) (*Service, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.doc.Services {
		if rec.Name == name {
			return nil, fmt.Errorf("%w: %q", ErrServiceExists, name)
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	rec := DocumentService{
		ID:        s.doc.NextID,
		Name:      name,
		Command:   command,
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
	}
	s.doc.NextID++
	s.doc.Services = append(s.doc.Services, rec)

	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	svc := fromDocument(rec)
	return &svc, nil
}

// ImportService inserts a record with its original id and timestamps.
// Collisions on id or name fail with ErrServiceExists.
func (s *jsonStore) ImportService(ctx context.Context, svc Service) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.doc.Services {
		if rec.ID == svc.ID || rec.Name == svc.Name {
			return fmt.Errorf("%w: %q (id %d)", ErrServiceExists, svc.Name, svc.ID)
		}
	}

	createdAt := svc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := svc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	rec := DocumentService{
		ID:        svc.ID,
		Name:      svc.Name,
		Command:   svc.Command,
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339Nano),
	}
	s.doc.Services = append(s.doc.Services, rec)
	if svc.ID >= s.doc.NextID {
		s.doc.NextID = svc.ID + 1
	}

	return s.flushLocked()
}

// RemoveService deletes a service record. A missing id fails with
// ErrServiceNotFound.
func (s *jsonStore) RemoveService(ctx context.Context, id int64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.doc.Services {
		if rec.ID == id {
			s.doc.Services = append(s.doc.Services[:i], s.doc.Services[i+1:]...)
			return s.flushLocked()
		}
	}
	return fmt.Errorf("%w: id %d", ErrServiceNotFound, id)
}

func (s *jsonStore) flushLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func fromDocument(rec DocumentService) Service {
	svc := Service{ID: rec.ID, Name: rec.Name, Command: rec.Command}
	if t, err := parseTimeString(rec.CreatedAt); err == nil {
		svc.CreatedAt = t
	}
	if t, err := parseTimeString(rec.UpdatedAt); err == nil {
		svc.UpdatedAt = t
	}
	return svc
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

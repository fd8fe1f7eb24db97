package store

import "time"

// Service is a managed application registered with the supervisor. Ports are
// not persisted; they derive from the base port convention at runtime.
type Service struct {
	ID        int64
	Name      string
	Command   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Document is the JSON-file backend's on-disk shape. It doubles as the
// legacy format consumed by migration.
type Document struct {
	Version  int               `json:"version"`
	NextID   int64             `json:"nextId"`
	Services []DocumentService `json:"services"`
}

// DocumentService is a service record inside a Document.
type DocumentService struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Command   string `json:"command"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// documentVersion is the current JSON document version. Older deployments
// wrote version 1; nothing newer exists yet.
const documentVersion = 1

// Package file provides file-based persistence for approval workflows,
// registration requests, and the identity directory. It backs unit tests and
// small single-process deployments; transitions are serialized under a store
// mutex so the single-pending invariant holds without a database.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/campushq/approvia/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	store            *store
	approvalRepo     *ApprovalRepository
	registrationRepo *RegistrationRepository
	identityRepo     *IdentityRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	s := &store{root: cleanRoot}
	registrationRepo := NewRegistrationRepository(s)

	return &Persistence{
		store:            s,
		approvalRepo:     NewApprovalRepository(s, registrationRepo),
		registrationRepo: registrationRepo,
		identityRepo:     NewIdentityRepository(s),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.store.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}

func (fp *Persistence) RegistrationRepository() persistence.RegistrationRepository {
	return fp.registrationRepo
}

func (fp *Persistence) IdentityRepository() persistence.IdentityRepository {
	return fp.identityRepo
}

// store holds the shared root and the mutex that serializes every mutation.
// Reads take the lock too; correctness over throughput is the point of this
// backend.
type store struct {
	root string
	mu   sync.Mutex
}

func (s *store) path(kind, id string) string {
	return filepath.Join(s.root, kind, id+".json")
}

func (s *store) read(kind, id string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s %s: %w", kind, id, err)
	}

	return true, nil
}

func (s *store) write(kind, id string, value any) error {
	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	if err := os.WriteFile(s.path(kind, id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

func (s *store) list(kind string) ([]string, error) {
	root := os.DirFS(filepath.Join(s.root, kind))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", kind, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

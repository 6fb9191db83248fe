package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store errors surfaced to handlers.
var (
	ErrProjectNotFound = errors.New("workspace: project not found")
	ErrNotOwner        = errors.New("workspace: account does not own this project")
	ErrAlreadyMember   = errors.New("workspace: account is already a collaborator")
)

// Store is the SQLite-backed project store.
type Store struct {
	db *sql.DB
}

// NewStore prepares the workspace tables on the shared database handle.
func NewStore(handle *sql.DB) (*Store, error) {
	s := &Store{db: handle}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("workspace: migration: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			phase      TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);

		CREATE TABLE IF NOT EXISTS collaborators (
			project_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			added_at   TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (project_id, account_id),
			FOREIGN KEY (project_id) REFERENCES projects(id)
		);
	`)
	return err
}

// CreateProject creates a project in the brief phase, owned by ownerID.
func (s *Store) CreateProject(ctx context.Context, ownerID, name string) (Project, error) {
	now := time.Now().UTC()
	p := Project{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Phase:     PhaseBrief,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, phase, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.OwnerID, p.Name, string(p.Phase),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return Project{}, fmt.Errorf("workspace: create project: %w", err)
	}
	return p, nil
}

// GetProject loads a project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (Project, error) {
	var p Project
	var phase, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, phase, created_at, updated_at
		FROM projects WHERE id = ?
	`, projectID).Scan(&p.ID, &p.OwnerID, &p.Name, &phase, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Project{}, fmt.Errorf("workspace: get project %q: %w", projectID, ErrProjectNotFound)
	}
	if err != nil {
		return Project{}, fmt.Errorf("workspace: get project %q: %w", projectID, err)
	}

	p.Phase = Phase(phase)
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		p.CreatedAt = t
	}
	if t, perr := time.Parse(time.RFC3339, updatedAt); perr == nil {
		p.UpdatedAt = t
	}
	return p, nil
}

// AdvancePhase moves the project to its next phase. Only the owner may
// advance; the transition is validated before anything is written.
func (s *Store) AdvancePhase(ctx context.Context, projectID, callerID string) (Project, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if p.OwnerID != callerID {
		return Project{}, fmt.Errorf("workspace: advance %q: %w", projectID, ErrNotOwner)
	}

	next, err := NextPhase(p.Phase)
	if err != nil {
		return Project{}, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE projects SET phase = ?, updated_at = ? WHERE id = ?
	`, string(next), now.Format(time.RFC3339), projectID)
	if err != nil {
		return Project{}, fmt.Errorf("workspace: advance phase: %w", err)
	}

	p.Phase = next
	p.UpdatedAt = now
	return p, nil
}

// AddCollaborator invites an account into a project.
func (s *Store) AddCollaborator(ctx context.Context, projectID, accountID string) (Collaborator, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return Collaborator{}, err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collaborators (project_id, account_id, added_at) VALUES (?, ?, ?)
	`, projectID, accountID, now.Format(time.RFC3339))
	if err != nil {
		// The composite primary key rejects duplicates; any other
		// failure is a store error, not a membership conflict.
		if isConstraintViolation(err) {
			return Collaborator{}, fmt.Errorf("workspace: add collaborator: %w", ErrAlreadyMember)
		}
		return Collaborator{}, fmt.Errorf("workspace: add collaborator: %w", err)
	}

	return Collaborator{ProjectID: projectID, AccountID: accountID, AddedAt: now}, nil
}

// isConstraintViolation reports whether err is a SQLITE_CONSTRAINT
// result, including extended codes such as the primary-key variant.
func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// CollaboratorCount returns how many collaborators a project has.
func (s *Store) CollaboratorCount(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collaborators WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("workspace: count collaborators: %w", err)
	}
	return n, nil
}

// ProjectsOwnedBy returns the ids of projects owned by accountID.
func (s *Store) ProjectsOwnedBy(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM projects WHERE owner_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("workspace: list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("workspace: scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

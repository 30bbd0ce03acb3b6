package toml

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/spf13/viper"
)

const (
	SessionsPathKey  = "sessions.path"
	sessionsFileName = "sessions.toml"
)

type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	_ ports.SessionRepository = (*SessionRepository)(nil)
	_ ports.SessionLocker     = (*SessionRepository)(nil)
)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	path, err := resolvePath(cfg, SessionsPathKey, sessionsFileName)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *SessionRepository) Path() string {
	return r.path
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return withFileLock(ctx, r.path, func() error {
		return r.create(ctx, session)
	})
}

func (r *SessionRepository) create(ctx context.Context, session domain.Session) error {
	file, err := r.readSchema()
	if err != nil {
		return err
	}

	for _, entry := range file.Sessions {
		if entry.ID == string(session.ID) {
			return domain.NewError(domain.KindSessionState, session.ID, "session already exists")
		}
	}
	file.Sessions = append(file.Sessions, toSessionSchema(session))

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

// Save replaces the stored session with the same id, or appends it.
func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return withFileLock(ctx, r.path, func() error {
		return r.save(ctx, session)
	})
}

func (r *SessionRepository) save(ctx context.Context, session domain.Session) error {
	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSessionSchema(session)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ID == encoded.ID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ID == string(id) {
			return fromSessionSchema(entry), nil
		}
	}

	return domain.Session{}, domain.NewError(domain.KindNotFound, id, "session not found")
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, len(file.Sessions))
	for _, entry := range file.Sessions {
		sessions = append(sessions, fromSessionSchema(entry))
	}

	return sessions, nil
}

// LockSession holds an flock on a per-session file next to the sessions file
// until the returned func is called. Lock files are left in place.
func (r *SessionRepository) LockSession(ctx context.Context, id domain.SessionID) (func(), error) {
	name := string(id)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, domain.NewError(domain.KindNotFound, id, "invalid session id")
	}

	return lockFile(ctx, filepath.Join(r.path+".locks", name+lockFileSuffix))
}

func (r *SessionRepository) readSchema() (sessionsFileSchema, error) {
	var file sessionsFileSchema
	if err := readTOMLFile(r.path, sessionsLabel, &file); err != nil {
		return sessionsFileSchema{}, err
	}
	if err := validateVersion(file.Version, sessionsLabel); err != nil {
		return sessionsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *SessionRepository) writeSchema(file sessionsFileSchema) error {
	file.applyDefaults()
	return writeTOMLFile(r.path, sessionsLabel, file)
}

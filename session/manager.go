package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/medguideai/medguide/config"
	"github.com/medguideai/medguide/entity"
	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	Manager interface {
		CreateSession(ctx context.Context) (*entity.Session, error)
		GetSession(ctx context.Context, sessionId string) (*entity.Session, error)
		GetOrCreateSession(ctx context.Context, sessionId string) (*entity.Session, error)
		GetSessions(ctx context.Context) ([]entity.Session, error)
		DeleteSession(ctx context.Context, sessionId string) error
		SetActiveCollection(ctx context.Context, sessionId string, collection string) error

		AppendTurn(ctx context.Context, sessionId string, turn entity.Turn) (*entity.Turn, error)
		GetTranscript(ctx context.Context, sessionId string) ([]entity.Turn, error)
		GetNumTurns(ctx context.Context, sessionId string) (int64, error)

		Close() error
	}

	manager struct {
		logger *slog.Logger
		db     *gorm.DB
	}
)

var (
	_ Manager = (*manager)(nil)
)

func NewManager(conf *config.SessionConfig, logger *slog.Logger) (Manager, error) {
	gormDB, err := db.OpenSqlite(conf.SqlitePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open session database")
	}

	if err := gormDB.AutoMigrate(&entity.Session{}, &entity.Turn{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate session tables")
	}

	return &manager{
		logger: logger,
		db:     gormDB,
	}, nil
}

func (s *manager) CreateSession(ctx context.Context) (*entity.Session, error) {
	tx := s.db.WithContext(ctx)

	session := entity.Session{
		ID: uuid.NewString(),
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create session")
	}

	return &session, nil
}

func (s *manager) GetSession(ctx context.Context, sessionId string) (*entity.Session, error) {
	tx := s.db.WithContext(ctx)

	var session entity.Session
	if r := tx.Find(&session, "id = ?", sessionId); r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find session")
	} else if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "session %q not found", sessionId)
	}

	return &session, nil
}

func (s *manager) GetOrCreateSession(ctx context.Context, sessionId string) (*entity.Session, error) {
	if strings.TrimSpace(sessionId) == "" {
		return s.CreateSession(ctx)
	}

	session, err := s.GetSession(ctx, sessionId)
	if errors.Is(err, errors.ErrNotFound) {
		session = &entity.Session{ID: sessionId}
		if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
			return nil, errors.Wrapf(err, "failed to create session")
		}
		return session, nil
	}
	return session, err
}

func (s *manager) GetSessions(ctx context.Context) ([]entity.Session, error) {
	tx := s.db.WithContext(ctx)

	var sessions []entity.Session
	if err := tx.Order("created_at ASC").Find(&sessions).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find sessions")
	}

	return sessions, nil
}

func (s *manager) DeleteSession(ctx context.Context, sessionId string) error {
	tx := s.db.WithContext(ctx)

	return tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.Turn{}, "session_id = ?", sessionId).Error; err != nil {
			return errors.Wrapf(err, "failed to delete turns")
		}
		if err := tx.Delete(&entity.Session{}, "id = ?", sessionId).Error; err != nil {
			return errors.Wrapf(err, "failed to delete session")
		}
		return nil
	})
}

func (s *manager) SetActiveCollection(ctx context.Context, sessionId string, collection string) error {
	tx := s.db.WithContext(ctx)

	r := tx.Model(&entity.Session{}).Where("id = ?", sessionId).Update("active_collection", collection)
	if r.Error != nil {
		return errors.Wrapf(r.Error, "failed to update session")
	}
	if r.RowsAffected == 0 {
		return errors.Wrapf(errors.ErrNotFound, "session %q not found", sessionId)
	}

	return nil
}

// AppendTurn appends one turn to the end of the transcript. Turns are never
// updated or reordered afterwards.
func (s *manager) AppendTurn(ctx context.Context, sessionId string, turn entity.Turn) (*entity.Turn, error) {
	tx := s.db.WithContext(ctx)

	if err := tx.Transaction(func(tx *gorm.DB) error {
		var session entity.Session
		if r := tx.Find(&session, "id = ?", sessionId); r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find session")
		} else if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrNotFound, "session %q not found", sessionId)
		}

		turn.ID = 0
		turn.SessionID = session.ID
		if turn.ToolArgs.Data() == nil {
			turn.ToolArgs = datatypes.NewJSONType(map[string]any{})
		}

		if err := tx.Create(&turn).Error; err != nil {
			return errors.Wrapf(err, "failed to save turn")
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return &turn, nil
}

func (s *manager) GetTranscript(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	tx := s.db.WithContext(ctx)

	var turns []entity.Turn
	if err := tx.Where("session_id = ?", sessionId).Order("id ASC").Find(&turns).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find turns")
	}

	return turns, nil
}

func (s *manager) GetNumTurns(ctx context.Context, sessionId string) (int64, error) {
	tx := s.db.WithContext(ctx)

	var count int64
	if err := tx.Model(&entity.Turn{}).Where("session_id = ?", sessionId).Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count turns")
	}

	return count, nil
}

func (s *manager) Close() error {
	return db.CloseDB(s.db)
}

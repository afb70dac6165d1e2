package service

import (
	"context"
	"time"

	"clinicbot/internal/domain"
	"clinicbot/internal/models"

	"github.com/rs/zerolog"
)

// SessionService wraps the state repository and hands the chat engine a
// ready-to-use session for every message.
type SessionService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewSessionService(stateRepo domain.StateRepository, logger *zerolog.Logger) *SessionService {
	return &SessionService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

// GetSession loads the session or starts a fresh idle one.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.stateRepo.GetState(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get session state")
		return nil, err
	}
	if session == nil {
		session = models.NewSession(sessionID)
	}
	return session, nil
}

func (s *SessionService) SaveSession(ctx context.Context, session *models.Session) error {
	return s.stateRepo.SetState(ctx, session)
}

func (s *SessionService) ClearSession(ctx context.Context, sessionID string) error {
	return s.stateRepo.ClearState(ctx, sessionID)
}

func (s *SessionService) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, sessionID, limit, window)
}

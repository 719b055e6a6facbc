package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/event"
	"github.com/Jis87-63/moz-digital-store/internal/notify"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
	"github.com/Jis87-63/moz-digital-store/pkg/validator"
)

// SupportInput holds the contact form.
type SupportInput struct {
	Name    string `json:"name" validate:"required,min=3,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// SupportService accepts contact form submissions.
type SupportService struct {
	repo     repository.SupportRepository
	producer *event.Producer
	logger   *slog.Logger
}

func NewSupportService(repo repository.SupportRepository, producer *event.Producer, logger *slog.Logger) *SupportService {
	return &SupportService{repo: repo, producer: producer, logger: logger}
}

// Submit stores the message, tied to userID when the sender is signed in.
func (s *SupportService) Submit(ctx context.Context, userID string, in SupportInput) (*domain.SupportMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	m := &domain.SupportMessage{
		Name:    in.Name,
		Email:   in.Email,
		Message: in.Message,
	}
	if userID != "" {
		m.UserID = &userID
	}

	if err := s.repo.Create(ctx, m); err != nil {
		notify.FromContext(ctx).Notify(ctx, notify.Error("Erro ao enviar mensagem", "Tente novamente mais tarde."))
		return nil, fmt.Errorf("create support message: %w", err)
	}

	if err := s.producer.PublishSupportReceived(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "failed to publish support event",
			slog.String("message_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	notify.FromContext(ctx).Notify(ctx, notify.Info("Mensagem enviada com sucesso!", "Nossa equipe responderá em breve."))
	return m, nil
}

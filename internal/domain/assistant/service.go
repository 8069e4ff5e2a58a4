package assistant

import (
	"context"

	"github.com/rs/zerolog"
)

// UnavailableMessage is the fallback text when the collaborator cannot be
// reached in time.
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again later."

// Service wraps a Client and absorbs upstream failures. Core record and
// workflow paths never depend on these calls succeeding: a degraded
// collaborator yields an empty-but-valid answer, logged at warn.
type Service struct {
	client Client
	log    zerolog.Logger
}

func NewService(client Client, log zerolog.Logger) *Service {
	return &Service{client: client, log: log}
}

func (s *Service) degraded(op string, err error) {
	s.log.Warn().Err(err).Str("op", op).Msg("assistant upstream degraded, serving fallback")
}

func (s *Service) SuggestMedicines(ctx context.Context, query string) []Suggestion {
	out, err := s.client.SuggestMedicines(ctx, query)
	if err != nil {
		s.degraded("suggest_medicines", err)
		return []Suggestion{}
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

func (s *Service) SuggestDosage(ctx context.Context, medicine string) string {
	out, err := s.client.SuggestDosage(ctx, medicine)
	if err != nil {
		s.degraded("suggest_dosage", err)
		return UnavailableMessage
	}
	return out
}

func (s *Service) CheckInteractions(ctx context.Context, genericNames []string) []Interaction {
	out, err := s.client.CheckInteractions(ctx, genericNames)
	if err != nil {
		s.degraded("check_interactions", err)
		return []Interaction{}
	}
	if out == nil {
		out = []Interaction{}
	}
	return out
}

func (s *Service) HealthTips(ctx context.Context, patientSummary string) []string {
	out, err := s.client.HealthTips(ctx, patientSummary)
	if err != nil {
		s.degraded("health_tips", err)
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func (s *Service) AnswerQuestion(ctx context.Context, patientSummary, question string) string {
	out, err := s.client.AnswerQuestion(ctx, patientSummary, question)
	if err != nil {
		s.degraded("answer_question", err)
		return UnavailableMessage
	}
	return out
}

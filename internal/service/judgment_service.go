package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/arbiter-backend/internal/ai"
	"github.com/ignatzorin/arbiter-backend/internal/logger"
	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbiter-backend/internal/repository"
	"github.com/ignatzorin/arbiter-backend/internal/speech"
	"github.com/ignatzorin/arbiter-backend/internal/storage"
)

type JudgmentDisputeRepo interface {
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Dispute, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to string, from ...string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) error
}

type TurnLister interface {
	ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]models.Turn, error)
}

type VerdictWriter interface {
	Upsert(ctx context.Context, v *models.Verdict) error
}

// VerdictGenerator — генератор вердикта; сбой фатален для разбирательства.
type VerdictGenerator interface {
	GenerateVerdict(ctx context.Context, req ai.VerdictRequest) (*ai.VerdictResult, error)
}

// SpeechSynthesizer озвучивает обоснование; сбой не фатален.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*speech.Synthesis, error)
}

// ResearchGate сообщает, положен ли участнику режим исследования.
type ResearchGate interface {
	ResearchAllowed(ctx context.Context, partyID uuid.UUID) (bool, error)
}

// VerdictNotifier уведомляет владельца о готовом вердикте (best-effort).
type VerdictNotifier interface {
	NotifyVerdictReady(ownerID, disputeID uuid.UUID, winner string)
}

// JudgmentOutcome — ответ разбирательства.
type JudgmentOutcome struct {
	Winner            string   `json:"winner"`
	WinnerName        string   `json:"winner_name"`
	Rationale         string   `json:"rationale"`
	FullText          string   `json:"full_text"`
	AudioURL          *string  `json:"audio_url,omitempty"`
	AudioDuration     *float64 `json:"audio_duration,omitempty"`
	ResearchPerformed bool     `json:"research_performed"`
	Sources           []string `json:"sources"`
}

// JudgmentService — оркестратор разбирательства. Собственного состояния не
// хранит: читает и пишет записи спора, реплик и вердикта на каждый вызов.
// Статус спора — единственное разделяемое изменяемое состояние пайплайна.
type JudgmentService struct {
	disputes  JudgmentDisputeRepo
	turns     TurnLister
	verdicts  VerdictWriter
	generator VerdictGenerator
	synth     SpeechSynthesizer
	media     MediaPublisher
	research  ResearchGate
	notifier  VerdictNotifier
	now       func() time.Time
}

func NewJudgmentService(disputes JudgmentDisputeRepo, turns TurnLister, verdicts VerdictWriter, generator VerdictGenerator, synth SpeechSynthesizer, media MediaPublisher, research ResearchGate) *JudgmentService {
	return &JudgmentService{
		disputes:  disputes,
		turns:     turns,
		verdicts:  verdicts,
		generator: generator,
		synth:     synth,
		media:     media,
		research:  research,
		now:       time.Now,
	}
}

// SetNotifier подключает отправку push-уведомления о готовом вердикте.
func (s *JudgmentService) SetNotifier(n VerdictNotifier) {
	s.notifier = n
}

// Adjudicate выполняет пайплайн разбирательства:
// переводит спор в processing, запрашивает вердикт, best-effort озвучивает
// и публикует его, сохраняет запись вердикта и завершает спор. Любой
// фатальный сбой компенсируется откатом статуса в open, чтобы участник мог
// повторить попытку без потери данных.
func (s *JudgmentService) Adjudicate(ctx context.Context, ownerID, disputeID uuid.UUID) (*JudgmentOutcome, error) {
	d, err := s.disputes.GetOwned(ctx, disputeID, ownerID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}

	turns, err := s.turns.ListByDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		// Отклоняем до какого-либо перехода статуса.
		return nil, apperror.New(apperror.ErrCodeValidation, "в споре нет ни одной реплики")
	}

	if s.generator == nil {
		return nil, apperror.New(apperror.ErrCodeGeneration, "генеративный сервис не настроен")
	}

	researchAllowed, err := s.research.ResearchAllowed(ctx, ownerID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	// Условный переход защищает от параллельного запуска по одному спору.
	err = s.disputes.TransitionStatus(ctx, disputeID, models.DisputeStatusProcessing,
		models.DisputeStatusOpen, models.DisputeStatusRecording, models.DisputeStatusCompleted)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrJudgingInProgress
		}
		return nil, err
	}

	result, err := s.generator.GenerateVerdict(ctx, ai.VerdictRequest{
		PersonAName:   d.PersonAName,
		PersonBName:   d.PersonBName,
		Persona:       d.Persona,
		AllowResearch: researchAllowed,
		Turns:         transcriptTurns(d, turns),
	})
	if err != nil {
		// Компенсирующий переход перед возвратом ошибки: спор остаётся
		// ровно таким, каким был до попытки, без частичного вердикта.
		s.rollback(ctx, disputeID)
		if apperror.IsGenerationFailure(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeGeneration, "не удалось получить вердикт")
	}

	audioKey, audioURL, audioDuration := s.narrate(ctx, d, result)

	verdict := &models.Verdict{
		DisputeID:         disputeID,
		Winner:            result.Winner,
		WinnerName:        result.WinnerName,
		Rationale:         result.Rationale,
		FullResponse:      result.FullResponse,
		ResearchPerformed: result.ResearchPerformed,
		Sources:           pq.StringArray(result.Sources),
		AudioKey:          audioKey,
		AudioDuration:     audioDuration,
	}
	if err := s.verdicts.Upsert(ctx, verdict); err != nil {
		s.rollback(ctx, disputeID)
		return nil, err
	}

	if err := s.disputes.Complete(ctx, disputeID, s.now()); err != nil {
		s.rollback(ctx, disputeID)
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyVerdictReady(ownerID, disputeID, result.Winner)
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	return &JudgmentOutcome{
		Winner:            result.Winner,
		WinnerName:        result.WinnerName,
		Rationale:         result.Rationale,
		FullText:          result.FullResponse,
		AudioURL:          audioURL,
		AudioDuration:     audioDuration,
		ResearchPerformed: result.ResearchPerformed,
		Sources:           sources,
	}, nil
}

// narrate озвучивает обоснование и публикует аудио. Любой сбой здесь не
// фатален: вердикт остаётся в силе без озвучки, поля аудио — nil.
func (s *JudgmentService) narrate(ctx context.Context, d *models.Dispute, result *ai.VerdictResult) (*string, *string, *float64) {
	if s.synth == nil || s.media == nil {
		return nil, nil, nil
	}

	text := result.Rationale
	if text == "" {
		text = result.FullResponse
	}

	syn, err := s.synth.Synthesize(ctx, text, speech.VoiceForPersona(d.Persona))
	if err != nil {
		logger.WithDispute(d.ID.String()).WithField("error", err.Error()).
			Warn("не удалось озвучить вердикт")
		return nil, nil, nil
	}

	key, url, err := s.media.Publish(ctx, syn.Audio, "audio/mpeg", d.OwnerID, d.ID, storage.MediaKindJudgment, 0)
	if err != nil {
		logger.WithDispute(d.ID.String()).WithField("error", err.Error()).
			Warn("не удалось опубликовать аудио вердикта")
		return nil, nil, nil
	}

	return &key, &url, &syn.EstimatedDurationSeconds
}

// rollback возвращает спор в open; сбой отката только логируется — исходную
// ошибку пайплайна он не подменяет.
func (s *JudgmentService) rollback(ctx context.Context, disputeID uuid.UUID) {
	if err := s.disputes.SetStatus(ctx, disputeID, models.DisputeStatusOpen); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"dispute_id": disputeID, "error": err.Error(),
		}).Error("не удалось откатить статус спора")
	}
}

// transcriptTurns подставляет отображаемые имена участников в реплики.
func transcriptTurns(d *models.Dispute, turns []models.Turn) []ai.TranscriptTurn {
	out := make([]ai.TranscriptTurn, 0, len(turns))
	for _, t := range turns {
		name := d.PersonAName
		if t.Speaker == models.SpeakerPersonB {
			name = d.PersonBName
		}
		out = append(out, ai.TranscriptTurn{
			Speaker:     t.Speaker,
			SpeakerName: name,
			Text:        t.Text,
		})
	}
	return out
}

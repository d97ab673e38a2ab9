package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/arbiter-backend/internal/logger"
	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbiter-backend/internal/repository"
	"github.com/ignatzorin/arbiter-backend/internal/speech"
	"github.com/ignatzorin/arbiter-backend/internal/validation"
)

type DisputeRepo interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Dispute, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TurnRepo interface {
	Append(ctx context.Context, t *models.Turn) error
	ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]models.Turn, error)
	CountByDispute(ctx context.Context, disputeID uuid.UUID) (int, error)
}

type VerdictReader interface {
	GetByDispute(ctx context.Context, disputeID uuid.UUID) (*models.Verdict, error)
}

// EntitlementGate — шлюз квот, консультируется до создания спора и до
// добавления реплики, независимо от пайплайна разбирательства.
type EntitlementGate interface {
	CanStartDispute(ctx context.Context, partyID uuid.UUID) (*Decision, error)
	CanAppendTurn(ctx context.Context, partyID, disputeID uuid.UUID) (*Decision, error)
	RecordDisputeStarted(ctx context.Context, partyID uuid.UUID) error
}

// TranscriptionProvider распознаёт загруженное аудио реплики.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*speech.Transcription, error)
}

// MediaPublisher публикует аудио и выдаёт временные ссылки.
type MediaPublisher interface {
	Publish(ctx context.Context, data []byte, contentType string, ownerID, disputeID uuid.UUID, kind string, seq int) (string, string, error)
	UploadURL(ctx context.Context, ownerID, disputeID uuid.UUID, seq int) (string, string, error)
	PlaybackURL(ctx context.Context, key string) (string, error)
}

// DisputeService отвечает за жизненный цикл спора вне разбирательства:
// создание с учётом квоты, приём реплик (текст и аудио), чтение и удаление.
type DisputeService struct {
	disputes    DisputeRepo
	turns       TurnRepo
	verdicts    VerdictReader
	gate        EntitlementGate
	transcriber TranscriptionProvider
	media       MediaPublisher
}

func NewDisputeService(disputes DisputeRepo, turns TurnRepo, verdicts VerdictReader, gate EntitlementGate, transcriber TranscriptionProvider, media MediaPublisher) *DisputeService {
	return &DisputeService{
		disputes:    disputes,
		turns:       turns,
		verdicts:    verdicts,
		gate:        gate,
		transcriber: transcriber,
		media:       media,
	}
}

// CreateDispute создаёт спор после проверки квоты и фиксирует его в дневном счётчике.
func (s *DisputeService) CreateDispute(ctx context.Context, ownerID uuid.UUID, mode, personAName, personBName, persona string) (*models.Dispute, error) {
	if err := validation.ValidateDisputeInput(mode, personAName, personBName, persona); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	decision, err := s.gate.CanStartDispute(ctx, ownerID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	if !decision.Allowed {
		remaining := 0
		if decision.Remaining != nil {
			remaining = *decision.Remaining
		}
		return nil, apperror.NewEntitlementDenied(decision.Reason, "дневной лимит споров исчерпан", remaining)
	}

	status := models.DisputeStatusOpen
	if mode == models.DisputeModeLive {
		status = models.DisputeStatusRecording
	}

	d := &models.Dispute{
		OwnerID:     ownerID,
		Mode:        mode,
		PersonAName: personAName,
		PersonBName: personBName,
		Persona:     persona,
		Status:      status,
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		return nil, err
	}

	if err := s.gate.RecordDisputeStarted(ctx, ownerID); err != nil {
		// Спор уже создан; потерянный инкремент делает мягкий лимит чуть мягче.
		logger.Log.WithFields(logrus.Fields{
			"owner_id": ownerID, "error": err.Error(),
		}).Warn("не удалось увеличить дневной счётчик споров")
	}

	return d, nil
}

// DisputeDetail — спор целиком: реплики и вердикт, если разбирательство прошло.
type DisputeDetail struct {
	Dispute         *models.Dispute
	Turns           []models.Turn
	Verdict         *models.Verdict
	VerdictAudioURL *string
}

// GetDispute возвращает спор с репликами и вердиктом (если есть).
func (s *DisputeService) GetDispute(ctx context.Context, ownerID, disputeID uuid.UUID) (*DisputeDetail, error) {
	d, err := s.disputes.GetOwned(ctx, disputeID, ownerID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}

	turns, err := s.turns.ListByDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.verdicts.GetByDispute(ctx, disputeID)
	if err != nil && !errors.Is(err, repository.ErrVerdictNotFound) {
		return nil, err
	}

	return &DisputeDetail{
		Dispute:         d,
		Turns:           turns,
		Verdict:         verdict,
		VerdictAudioURL: s.playbackURL(ctx, disputeID, verdict),
	}, nil
}

// GetVerdict возвращает вердикт спора со свежей ссылкой на озвучку.
// Presigned-ссылки протухают, поэтому ссылка выписывается на каждый запрос.
func (s *DisputeService) GetVerdict(ctx context.Context, ownerID, disputeID uuid.UUID) (*models.Verdict, *string, error) {
	if _, err := s.disputes.GetOwned(ctx, disputeID, ownerID); err != nil {
		return nil, nil, mapDisputeErr(err)
	}

	v, err := s.verdicts.GetByDispute(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrVerdictNotFound) {
			return nil, nil, apperror.ErrVerdictNotFound
		}
		return nil, nil, err
	}

	return v, s.playbackURL(ctx, disputeID, v), nil
}

// playbackURL выписывает временную ссылку на озвучку вердикта, если она есть.
func (s *DisputeService) playbackURL(ctx context.Context, disputeID uuid.UUID, v *models.Verdict) *string {
	if v == nil || v.AudioKey == nil || s.media == nil {
		return nil
	}
	url, err := s.media.PlaybackURL(ctx, *v.AudioKey)
	if err != nil {
		logger.WithDispute(disputeID.String()).WithField("error", err.Error()).
			Warn("не удалось выписать ссылку на озвучку вердикта")
		return nil
	}
	return &url
}

// ListDisputes возвращает споры участника постранично.
func (s *DisputeService) ListDisputes(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	return s.disputes.ListByOwner(ctx, ownerID, limit, offset)
}

// DeleteDispute удаляет спор вместе с репликами и вердиктом.
func (s *DisputeService) DeleteDispute(ctx context.Context, ownerID, disputeID uuid.UUID) error {
	if _, err := s.disputes.GetOwned(ctx, disputeID, ownerID); err != nil {
		return mapDisputeErr(err)
	}
	if err := s.disputes.Delete(ctx, disputeID); err != nil {
		return mapDisputeErr(err)
	}
	return nil
}

// AppendTextTurn добавляет напечатанную реплику.
func (s *DisputeService) AppendTextTurn(ctx context.Context, ownerID, disputeID uuid.UUID, speaker, text string) (*models.Turn, error) {
	if _, err := s.prepareAppend(ctx, ownerID, disputeID, speaker); err != nil {
		return nil, err
	}

	if err := validation.ValidateStatement(text); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	t := &models.Turn{
		DisputeID: disputeID,
		Speaker:   speaker,
		Text:      text,
	}
	if err := s.turns.Append(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AppendAudioTurn распознаёт загруженное аудио, публикует оригинал в хранилище
// и добавляет реплику с расшифровкой. Неудачная публикация аудио не мешает
// реплике: текст важнее ссылки на запись.
func (s *DisputeService) AppendAudioTurn(ctx context.Context, ownerID, disputeID uuid.UUID, speaker string, audio []byte, mimeType string) (*models.Turn, error) {
	if _, err := s.prepareAppend(ctx, ownerID, disputeID, speaker); err != nil {
		return nil, err
	}

	if s.transcriber == nil {
		return nil, apperror.New(apperror.ErrCodeInternal, "распознавание речи не настроено")
	}

	tr, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось распознать аудио")
	}

	t := &models.Turn{
		DisputeID: disputeID,
		Speaker:   speaker,
		Text:      tr.Text,
	}
	if tr.DurationSeconds > 0 {
		t.DurationSeconds = &tr.DurationSeconds
	}

	if s.media != nil {
		count, err := s.turns.CountByDispute(ctx, disputeID)
		if err != nil {
			return nil, err
		}
		key, _, err := s.media.Publish(ctx, audio, mimeType, ownerID, disputeID, "turn", count+1)
		if err != nil {
			logger.WithDispute(disputeID.String()).WithField("error", err.Error()).
				Warn("не удалось опубликовать аудио реплики")
		} else {
			t.AudioKey = &key
		}
	}

	if err := s.turns.Append(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// TurnUploadURL выдаёт клиенту временную ссылку на прямую загрузку аудио.
func (s *DisputeService) TurnUploadURL(ctx context.Context, ownerID, disputeID uuid.UUID) (string, string, error) {
	if _, err := s.disputes.GetOwned(ctx, disputeID, ownerID); err != nil {
		return "", "", mapDisputeErr(err)
	}
	if s.media == nil {
		return "", "", apperror.New(apperror.ErrCodeInternal, "хранилище медиа не настроено")
	}
	count, err := s.turns.CountByDispute(ctx, disputeID)
	if err != nil {
		return "", "", err
	}
	return s.media.UploadURL(ctx, ownerID, disputeID, count+1)
}

// prepareAppend выполняет общие проверки добавления реплики: владение спором,
// открытый статус, роль говорящего и квота тарифа.
func (s *DisputeService) prepareAppend(ctx context.Context, ownerID, disputeID uuid.UUID, speaker string) (*models.Dispute, error) {
	d, err := s.disputes.GetOwned(ctx, disputeID, ownerID)
	if err != nil {
		return nil, mapDisputeErr(err)
	}

	if d.Status != models.DisputeStatusOpen && d.Status != models.DisputeStatusRecording {
		return nil, apperror.New(apperror.ErrCodeValidation, "реплики принимаются только в открытом споре")
	}

	if !models.ValidSpeaker(speaker) {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестная роль говорящего")
	}

	decision, err := s.gate.CanAppendTurn(ctx, ownerID, disputeID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	if !decision.Allowed {
		return nil, apperror.NewEntitlementDenied(decision.Reason, "лимит реплик в споре исчерпан", 0)
	}

	return d, nil
}

// mapDisputeErr переводит ошибки репозитория в ошибки приложения.
func mapDisputeErr(err error) error {
	if errors.Is(err, repository.ErrDisputeNotFound) {
		return apperror.ErrDisputeNotFound
	}
	return err
}

// mapUserErr переводит ошибки репозитория пользователей.
func mapUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return err
}

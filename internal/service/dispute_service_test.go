package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/pkg/apperror"
	"github.com/ignatzorin/arbiter-backend/internal/repository"
	"github.com/ignatzorin/arbiter-backend/internal/speech"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeRepo) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockTurnRepo struct {
	mock.Mock
}

func (m *mockTurnRepo) Append(ctx context.Context, t *models.Turn) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTurnRepo) ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]models.Turn, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).([]models.Turn), args.Error(1)
}

func (m *mockTurnRepo) CountByDispute(ctx context.Context, disputeID uuid.UUID) (int, error) {
	args := m.Called(ctx, disputeID)
	return args.Int(0), args.Error(1)
}

type mockVerdictReader struct {
	mock.Mock
}

func (m *mockVerdictReader) GetByDispute(ctx context.Context, disputeID uuid.UUID) (*models.Verdict, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Verdict), args.Error(1)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) CanStartDispute(ctx context.Context, partyID uuid.UUID) (*Decision, error) {
	args := m.Called(ctx, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func (m *mockGate) CanAppendTurn(ctx context.Context, partyID, disputeID uuid.UUID) (*Decision, error) {
	args := m.Called(ctx, partyID, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func (m *mockGate) RecordDisputeStarted(ctx context.Context, partyID uuid.UUID) error {
	args := m.Called(ctx, partyID)
	return args.Error(0)
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (*speech.Transcription, error) {
	args := m.Called(ctx, audio, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*speech.Transcription), args.Error(1)
}

type disputeFixture struct {
	disputes    *mockDisputeRepo
	turns       *mockTurnRepo
	verdicts    *mockVerdictReader
	gate        *mockGate
	transcriber *mockTranscriber
	media       *mockMedia
	svc         *DisputeService
}

func newDisputeFixture() *disputeFixture {
	f := &disputeFixture{
		disputes:    new(mockDisputeRepo),
		turns:       new(mockTurnRepo),
		verdicts:    new(mockVerdictReader),
		gate:        new(mockGate),
		transcriber: new(mockTranscriber),
		media:       new(mockMedia),
	}
	f.svc = NewDisputeService(f.disputes, f.turns, f.verdicts, f.gate, f.transcriber, f.media)
	return f
}

func TestCreateDispute_Success(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()

	remaining := 2
	f.gate.On("CanStartDispute", ctx, ownerID).Return(&Decision{Allowed: true, Remaining: &remaining}, nil)
	f.disputes.On("Create", ctx, mock.MatchedBy(func(d *models.Dispute) bool {
		return d.OwnerID == ownerID && d.Status == models.DisputeStatusOpen
	})).Return(nil)
	f.gate.On("RecordDisputeStarted", ctx, ownerID).Return(nil)

	d, err := f.svc.CreateDispute(ctx, ownerID, models.DisputeModeTurnBased, "Alex", "Sam", models.PersonaMediator)

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, d.Status)
	f.gate.AssertExpectations(t)
}

func TestCreateDispute_LiveModeStartsRecording(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()

	f.gate.On("CanStartDispute", ctx, ownerID).Return(&Decision{Allowed: true}, nil)
	f.disputes.On("Create", ctx, mock.Anything).Return(nil)
	f.gate.On("RecordDisputeStarted", ctx, ownerID).Return(nil)

	d, err := f.svc.CreateDispute(ctx, ownerID, models.DisputeModeLive, "Alex", "Sam", models.PersonaComedic)

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusRecording, d.Status)
}

func TestCreateDispute_QuotaDenied(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()

	zero := 0
	f.gate.On("CanStartDispute", ctx, ownerID).Return(&Decision{
		Allowed: false, Reason: ReasonDailyLimitReached, Remaining: &zero,
	}, nil)

	_, err := f.svc.CreateDispute(ctx, ownerID, models.DisputeModeTurnBased, "Alex", "Sam", models.PersonaMediator)

	assert.Error(t, err)
	assert.True(t, apperror.IsRateLimited(err))
	f.disputes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateDispute_InvalidInput(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()

	_, err := f.svc.CreateDispute(ctx, ownerID, "teleconference", "Alex", "Sam", models.PersonaMediator)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.CreateDispute(ctx, ownerID, models.DisputeModeLive, "", "Sam", models.PersonaMediator)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.CreateDispute(ctx, ownerID, models.DisputeModeLive, "Alex", "Sam", "prosecutor")
	assert.True(t, apperror.IsValidation(err))

	f.gate.AssertNotCalled(t, "CanStartDispute", mock.Anything, mock.Anything)
}

func TestAppendTextTurn_Success(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.gate.On("CanAppendTurn", ctx, ownerID, disputeID).Return(&Decision{Allowed: true}, nil)
	f.turns.On("Append", ctx, mock.MatchedBy(func(turn *models.Turn) bool {
		return turn.DisputeID == disputeID && turn.Speaker == models.SpeakerPersonA && turn.Text == "я мыл посуду"
	})).Return(nil)

	turn, err := f.svc.AppendTextTurn(ctx, ownerID, disputeID, models.SpeakerPersonA, "я мыл посуду")

	assert.NoError(t, err)
	assert.Equal(t, models.SpeakerPersonA, turn.Speaker)
	f.turns.AssertExpectations(t)
}

func TestAppendTextTurn_RejectedWhenCompleted(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	d := sampleDispute(ownerID, disputeID)
	d.Status = models.DisputeStatusCompleted
	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(d, nil)

	_, err := f.svc.AppendTextTurn(ctx, ownerID, disputeID, models.SpeakerPersonA, "поздно")

	assert.True(t, apperror.IsValidation(err))
	f.turns.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppendTextTurn_UnknownSpeaker(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)

	_, err := f.svc.AppendTextTurn(ctx, ownerID, disputeID, "person_c", "кто я")

	assert.True(t, apperror.IsValidation(err))
}

func TestAppendTextTurn_TurnLimitDenied(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.gate.On("CanAppendTurn", ctx, ownerID, disputeID).Return(&Decision{
		Allowed: false, Reason: ReasonTurnLimitReached,
	}, nil)

	_, err := f.svc.AppendTextTurn(ctx, ownerID, disputeID, models.SpeakerPersonB, "ещё аргумент")

	assert.True(t, apperror.IsRateLimited(err))
	f.turns.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppendAudioTurn_TranscribesAndPublishes(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()
	audio := []byte("mp3-bytes")

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.gate.On("CanAppendTurn", ctx, ownerID, disputeID).Return(&Decision{Allowed: true}, nil)
	f.transcriber.On("Transcribe", ctx, audio, "audio/mpeg").
		Return(&speech.Transcription{Text: "I always do the dishes", DurationSeconds: 3.2}, nil)
	f.turns.On("CountByDispute", ctx, disputeID).Return(2, nil)
	f.media.On("Publish", ctx, audio, "audio/mpeg", ownerID, disputeID, "turn", 3).
		Return("users/x/turns/3.mp3", "https://example/turns/3.mp3", nil)
	f.turns.On("Append", ctx, mock.MatchedBy(func(turn *models.Turn) bool {
		return turn.Text == "I always do the dishes" && turn.AudioKey != nil && *turn.AudioKey == "users/x/turns/3.mp3"
	})).Return(nil)

	turn, err := f.svc.AppendAudioTurn(ctx, ownerID, disputeID, models.SpeakerPersonA, audio, "audio/mpeg")

	assert.NoError(t, err)
	assert.NotNil(t, turn.DurationSeconds)
	assert.Equal(t, 3.2, *turn.DurationSeconds)
	f.media.AssertExpectations(t)
}

func TestAppendAudioTurn_PublishFailureKeepsTurn(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()
	audio := []byte("ogg-bytes")

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.gate.On("CanAppendTurn", ctx, ownerID, disputeID).Return(&Decision{Allowed: true}, nil)
	f.transcriber.On("Transcribe", ctx, audio, "audio/ogg").
		Return(&speech.Transcription{Text: "расшифровка"}, nil)
	f.turns.On("CountByDispute", ctx, disputeID).Return(0, nil)
	f.media.On("Publish", ctx, audio, "audio/ogg", ownerID, disputeID, "turn", 1).
		Return("", "", assert.AnError)
	f.turns.On("Append", ctx, mock.MatchedBy(func(turn *models.Turn) bool {
		return turn.AudioKey == nil && turn.Text == "расшифровка"
	})).Return(nil)

	turn, err := f.svc.AppendAudioTurn(ctx, ownerID, disputeID, models.SpeakerPersonB, audio, "audio/ogg")

	assert.NoError(t, err)
	assert.Nil(t, turn.AudioKey)
}

func TestGetDispute_NotFound(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(nil, repository.ErrDisputeNotFound)

	_, err := f.svc.GetDispute(ctx, ownerID, disputeID)

	assert.ErrorIs(t, err, apperror.ErrDisputeNotFound)
}

func TestGetDispute_NoVerdictYet(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.turns.On("ListByDispute", ctx, disputeID).Return(sampleTurns(disputeID), nil)
	f.verdicts.On("GetByDispute", ctx, disputeID).Return(nil, repository.ErrVerdictNotFound)

	detail, err := f.svc.GetDispute(ctx, ownerID, disputeID)

	assert.NoError(t, err)
	assert.Nil(t, detail.Verdict)
	assert.Len(t, detail.Turns, 2)
}

func TestGetVerdict_FreshPlaybackURL(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	key := "users/x/disputes/y/verdict.mp3"
	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.verdicts.On("GetByDispute", ctx, disputeID).Return(&models.Verdict{
		DisputeID: disputeID, Winner: models.SpeakerPersonA, WinnerName: "Alex", AudioKey: &key,
	}, nil)
	f.media.On("PlaybackURL", ctx, key).Return("https://example/signed.mp3", nil)

	verdict, audioURL, err := f.svc.GetVerdict(ctx, ownerID, disputeID)

	assert.NoError(t, err)
	assert.Equal(t, "Alex", verdict.WinnerName)
	assert.NotNil(t, audioURL)
	assert.Equal(t, "https://example/signed.mp3", *audioURL)
}

func TestGetVerdict_NotFound(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.verdicts.On("GetByDispute", ctx, disputeID).Return(nil, repository.ErrVerdictNotFound)

	_, _, err := f.svc.GetVerdict(ctx, ownerID, disputeID)

	assert.ErrorIs(t, err, apperror.ErrVerdictNotFound)
}

func TestTurnUploadURL(t *testing.T) {
	f := newDisputeFixture()
	ctx := context.Background()
	ownerID := uuid.New()
	disputeID := uuid.New()

	f.disputes.On("GetOwned", ctx, disputeID, ownerID).Return(sampleDispute(ownerID, disputeID), nil)
	f.turns.On("CountByDispute", ctx, disputeID).Return(4, nil)
	f.media.On("UploadURL", ctx, ownerID, disputeID, 5).
		Return("users/x/turns/5.mp3", "https://example/put", nil)

	key, url, err := f.svc.TurnUploadURL(ctx, ownerID, disputeID)

	assert.NoError(t, err)
	assert.Equal(t, "users/x/turns/5.mp3", key)
	assert.Equal(t, "https://example/put", url)
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbiter-backend/internal/models"
)

// Машинно-читаемые причины отказа по квоте.
const (
	ReasonDailyLimitReached = "daily_limit_reached"
	ReasonTurnLimitReached  = "turn_limit_reached"
)

type EntitlementUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateTier(ctx context.Context, id uuid.UUID, tier string) error
	IncrementDisputeCount(ctx context.Context, id uuid.UUID) (int, error)
}

type EntitlementTurnCounter interface {
	CountByDispute(ctx context.Context, disputeID uuid.UUID) (int, error)
}

// Decision — решение шлюза квот. Remaining отсутствует у безлимитных тарифов.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// EntitlementSnapshot — сводка для клиента: тариф, политика, дневное использование.
type EntitlementSnapshot struct {
	Tier      string            `json:"tier"`
	Policy    models.TierPolicy `json:"policy"`
	UsedToday int               `json:"used_today"`
	Remaining *int              `json:"remaining,omitempty"`
}

// EntitlementService решает, может ли участник начать спор или добавить
// реплику. Проверка и последующий инкремент не атомарны между собой —
// это мягкий дневной лимит, параллельные запросы могут его слегка превысить.
type EntitlementService struct {
	users EntitlementUserRepository
	turns EntitlementTurnCounter
	now   func() time.Time
}

func NewEntitlementService(users EntitlementUserRepository, turns EntitlementTurnCounter) *EntitlementService {
	return &EntitlementService{users: users, turns: turns, now: time.Now}
}

// CanStartDispute проверяет дневной лимит споров участника.
func (s *EntitlementService) CanStartDispute(ctx context.Context, partyID uuid.UUID) (*Decision, error) {
	user, err := s.users.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	tier, err := s.effectiveTier(ctx, user)
	if err != nil {
		return nil, err
	}
	policy := models.PolicyForTier(tier)

	if policy.DailyDisputeLimit == models.Unlimited {
		return &Decision{Allowed: true}, nil
	}

	count := s.effectiveCount(user)
	if count >= policy.DailyDisputeLimit {
		zero := 0
		return &Decision{Allowed: false, Reason: ReasonDailyLimitReached, Remaining: &zero}, nil
	}

	remaining := policy.DailyDisputeLimit - count - 1
	return &Decision{Allowed: true, Remaining: &remaining}, nil
}

// CanAppendTurn проверяет лимит реплик в споре для тарифа участника.
func (s *EntitlementService) CanAppendTurn(ctx context.Context, partyID, disputeID uuid.UUID) (*Decision, error) {
	user, err := s.users.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	tier, err := s.effectiveTier(ctx, user)
	if err != nil {
		return nil, err
	}
	policy := models.PolicyForTier(tier)

	if policy.MaxTurnsPerDispute == models.Unlimited {
		return &Decision{Allowed: true}, nil
	}

	count, err := s.turns.CountByDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if count >= policy.MaxTurnsPerDispute {
		return &Decision{Allowed: false, Reason: ReasonTurnLimitReached}, nil
	}

	return &Decision{Allowed: true}, nil
}

// RecordDisputeStarted фиксирует начатый спор в дневном счётчике.
func (s *EntitlementService) RecordDisputeStarted(ctx context.Context, partyID uuid.UUID) error {
	_, err := s.users.IncrementDisputeCount(ctx, partyID)
	return err
}

// ResearchAllowed сообщает, доступен ли участнику режим исследования.
func (s *EntitlementService) ResearchAllowed(ctx context.Context, partyID uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(ctx, partyID)
	if err != nil {
		return false, err
	}
	tier, err := s.effectiveTier(ctx, user)
	if err != nil {
		return false, err
	}
	return models.PolicyForTier(tier).ResearchEnabled, nil
}

// Snapshot возвращает сводку квот участника для клиента.
func (s *EntitlementService) Snapshot(ctx context.Context, partyID uuid.UUID) (*EntitlementSnapshot, error) {
	user, err := s.users.GetByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	tier, err := s.effectiveTier(ctx, user)
	if err != nil {
		return nil, err
	}
	policy := models.PolicyForTier(tier)

	snap := &EntitlementSnapshot{
		Tier:      tier,
		Policy:    policy,
		UsedToday: s.effectiveCount(user),
	}
	if policy.DailyDisputeLimit != models.Unlimited {
		remaining := policy.DailyDisputeLimit - snap.UsedToday
		if remaining < 0 {
			remaining = 0
		}
		snap.Remaining = &remaining
	}
	return snap, nil
}

// effectiveTier сверяет срок подписки с текущим временем; истёкшая подписка
// понижает участника до free, и понижение сразу сохраняется — побочный
// эффект чтения, чтобы платные лимиты не переживали подписку.
func (s *EntitlementService) effectiveTier(ctx context.Context, user *models.User) (string, error) {
	if user.Tier == models.TierFree {
		return models.TierFree, nil
	}
	if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.Before(s.now()) {
		if err := s.users.UpdateTier(ctx, user.ID, models.TierFree); err != nil {
			return "", err
		}
		user.Tier = models.TierFree
		return models.TierFree, nil
	}
	return user.Tier, nil
}

// effectiveCount трактует счётчик за прошлую календарную дату (UTC) как ноль,
// не трогая сохранённое значение: сброс выполняется лениво при инкременте.
func (s *EntitlementService) effectiveCount(user *models.User) int {
	if user.LastDisputeDate == nil {
		return 0
	}
	today := s.now().UTC()
	last := user.LastDisputeDate.UTC()
	if last.Year() != today.Year() || last.YearDay() != today.YearDay() {
		return 0
	}
	return user.DisputesToday
}

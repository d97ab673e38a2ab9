package models

import (
	"time"

	"github.com/google/uuid"
)

// Тарифы подписки.
const (
	TierFree    = "free"
	TierTrial   = "trial"
	TierPremium = "premium"
)

// User описывает участника платформы. Счётчик споров встроен в профиль:
// значение за прошлую дату считается нулём при проверке, но физически
// сбрасывается только при следующем инкременте.
type User struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	Username              string     `db:"username" json:"username"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	Tier                  string     `db:"tier" json:"tier"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	DisputesToday         int        `db:"disputes_today" json:"disputes_today"`
	LastDisputeDate       *time.Time `db:"last_dispute_date" json:"last_dispute_date,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// TierPolicy описывает лимиты тарифа: споров в день, реплик в споре,
// доступность режима исследования. Отрицательный лимит означает "без лимита".
type TierPolicy struct {
	DailyDisputeLimit  int  `json:"daily_dispute_limit"`
	MaxTurnsPerDispute int  `json:"max_turns_per_dispute"`
	ResearchEnabled    bool `json:"research_enabled"`
}

// Unlimited обозначает отсутствие лимита в политике тарифа.
const Unlimited = -1

var tierPolicies = map[string]TierPolicy{
	TierFree:    {DailyDisputeLimit: 3, MaxTurnsPerDispute: 10, ResearchEnabled: false},
	TierTrial:   {DailyDisputeLimit: 10, MaxTurnsPerDispute: 20, ResearchEnabled: true},
	TierPremium: {DailyDisputeLimit: Unlimited, MaxTurnsPerDispute: Unlimited, ResearchEnabled: true},
}

// PolicyForTier возвращает политику тарифа; неизвестный тариф трактуется как free.
func PolicyForTier(tier string) TierPolicy {
	if p, ok := tierPolicies[tier]; ok {
		return p
	}
	return tierPolicies[TierFree]
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Статусы спора. Статус монотонный, единственный разрешённый откат —
// processing -> open при фатальном сбое пайплайна.
const (
	DisputeStatusOpen       = "open"
	DisputeStatusRecording  = "recording"
	DisputeStatusProcessing = "processing"
	DisputeStatusCompleted  = "completed"
)

// Режимы спора: живая запись двоих или поочерёдный ввод реплик.
const (
	DisputeModeLive      = "live"
	DisputeModeTurnBased = "turn_based"
)

// Персоны судьи: тон инструкции и голос озвучки.
const (
	PersonaMediator      = "mediator"
	PersonaAuthoritative = "authoritative"
	PersonaComedic       = "comedic"
)

// Роли говорящих внутри спора.
const (
	SpeakerPersonA = "person_a"
	SpeakerPersonB = "person_b"
	WinnerTie      = "tie"
)

// TieLabel — отображаемое имя победителя при ничьей.
const TieLabel = "Tie"

// Dispute — спор между двумя названными участниками.
type Dispute struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OwnerID     uuid.UUID  `db:"owner_id" json:"owner_id"`
	Mode        string     `db:"mode" json:"mode"`
	PersonAName string     `db:"person_a_name" json:"person_a_name"`
	PersonBName string     `db:"person_b_name" json:"person_b_name"`
	Persona     string     `db:"persona" json:"persona"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Turn — одна реплика участника. Неизменяема после создания; ord строго
// возрастает внутри спора и никогда не переиспользуется.
type Turn struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DisputeID       uuid.UUID  `db:"dispute_id" json:"dispute_id"`
	Speaker         string     `db:"speaker" json:"speaker"`
	Text            string     `db:"text" json:"text"`
	AudioKey        *string    `db:"audio_key" json:"audio_key,omitempty"`
	DurationSeconds *float64   `db:"duration_seconds" json:"duration_seconds,omitempty"`
	Ord             int        `db:"ord" json:"ord"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Verdict — результат разбирательства. У спора не более одного вердикта,
// повторное разбирательство заменяет прежний.
type Verdict struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	DisputeID         uuid.UUID  `db:"dispute_id" json:"dispute_id"`
	Winner            string     `db:"winner" json:"winner"`
	WinnerName        string     `db:"winner_name" json:"winner_name"`
	Rationale         string     `db:"rationale" json:"rationale"`
	FullResponse      string     `db:"full_response" json:"full_response"`
	ResearchPerformed bool       `db:"research_performed" json:"research_performed"`
	Sources           pq.StringArray `db:"sources" json:"sources"`
	AudioKey          *string    `db:"audio_key" json:"audio_key,omitempty"`
	AudioDuration     *float64   `db:"audio_duration" json:"audio_duration,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// ValidMode проверяет режим спора.
func ValidMode(mode string) bool {
	return mode == DisputeModeLive || mode == DisputeModeTurnBased
}

// ValidPersona проверяет персону судьи.
func ValidPersona(persona string) bool {
	switch persona {
	case PersonaMediator, PersonaAuthoritative, PersonaComedic:
		return true
	}
	return false
}

// ValidSpeaker проверяет роль говорящего.
func ValidSpeaker(speaker string) bool {
	return speaker == SpeakerPersonA || speaker == SpeakerPersonB
}

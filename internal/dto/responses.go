package dto

import (
	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/service"
)

// ErrorResponse — стандартный формат ошибки.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthResponse — участник и пара токенов.
type AuthResponse struct {
	User   *models.User       `json:"user"`
	Tokens *service.TokenPair `json:"tokens"`
}

// DisputeResponse — спор с репликами и вердиктом (если есть).
type DisputeResponse struct {
	*models.Dispute
	Turns   []models.Turn   `json:"turns"`
	Verdict *VerdictResponse `json:"verdict,omitempty"`
}

// VerdictResponse — вердикт со свежей ссылкой на воспроизведение.
type VerdictResponse struct {
	*models.Verdict
	AudioURL *string `json:"audio_url,omitempty"`
}

// UploadURLResponse — ссылка на прямую загрузку аудио клиентом.
type UploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

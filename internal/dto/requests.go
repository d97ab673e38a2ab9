package dto

// RegisterRequest — тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateDisputeRequest — тело запроса создания спора.
type CreateDisputeRequest struct {
	Mode        string `json:"mode" binding:"required"`
	PersonAName string `json:"person_a_name" binding:"required"`
	PersonBName string `json:"person_b_name" binding:"required"`
	Persona     string `json:"persona" binding:"required"`
}

// AppendTurnRequest — тело JSON запроса добавления напечатанной реплики.
type AppendTurnRequest struct {
	Speaker string `json:"speaker" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

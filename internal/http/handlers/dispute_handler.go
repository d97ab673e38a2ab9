package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/arbiter-backend/internal/dto"
	"github.com/ignatzorin/arbiter-backend/internal/http/handlers/common"
	"github.com/ignatzorin/arbiter-backend/internal/service"
)

// Разрешённые типы аудио для реплик.
var allowedAudioMimeTypes = map[string]bool{
	"audio/mpeg":   true,
	"audio/mp4":    true,
	"audio/x-m4a":  true,
	"audio/wave":   true,
	"audio/x-wav":  true,
	"audio/ogg":    true,
	"audio/webm":   true,
	"video/webm":   true, // MediaRecorder в браузере пишет звук в webm контейнер
	"audio/x-flac": true,
}

// DisputeHandler управляет жизненным циклом спора: создание, чтение,
// удаление и приём реплик в текстовом и аудио виде.
type DisputeHandler struct {
	svc            *service.DisputeService
	maxUploadBytes int64
}

// NewDisputeHandler создаёт хэндлер. maxUploadMB ограничивает размер аудио реплики.
func NewDisputeHandler(svc *service.DisputeService, maxUploadMB int64) *DisputeHandler {
	return &DisputeHandler{svc: svc, maxUploadBytes: maxUploadMB * 1024 * 1024}
}

// Create обрабатывает POST /disputes.
func (h *DisputeHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	d, err := h.svc.CreateDispute(c.Request.Context(), userID, req.Mode, req.PersonAName, req.PersonBName, req.Persona)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, d)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	detail, err := h.svc.GetDispute(c.Request.Context(), userID, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	resp := dto.DisputeResponse{
		Dispute: detail.Dispute,
		Turns:   detail.Turns,
	}
	if detail.Verdict != nil {
		resp.Verdict = &dto.VerdictResponse{
			Verdict:  detail.Verdict,
			AudioURL: detail.VerdictAudioURL,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// List обрабатывает GET /disputes.
func (h *DisputeHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListDisputes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes, "limit": limit, "offset": offset})
}

// Delete обрабатывает DELETE /disputes/:id.
func (h *DisputeHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.svc.DeleteDispute(c.Request.Context(), userID, disputeID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AppendTurn обрабатывает POST /disputes/:id/turns.
// Принимает либо JSON с напечатанным текстом, либо multipart с аудио записью.
func (h *DisputeHandler) AppendTurn(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.appendAudioTurn(c, userID, disputeID)
		return
	}

	var req dto.AppendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	turn, err := h.svc.AppendTextTurn(c.Request.Context(), userID, disputeID, req.Speaker, req.Text)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, turn)
}

// appendAudioTurn — multipart ветка приёма реплики: поле speaker + файл audio.
func (h *DisputeHandler) appendAudioTurn(c *gin.Context, userID, disputeID uuid.UUID) {
	speaker := c.PostForm("speaker")
	if speaker == "" {
		common.RespondBadRequest(c, "поле speaker обязательно")
		return
	}

	file, err := c.FormFile("audio")
	if err != nil {
		common.RespondBadRequest(c, "поле audio обязательно")
		return
	}

	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}
	if file.Size > h.maxUploadBytes {
		common.RespondBadRequest(c, fmt.Sprintf("файл превышает лимит %d МБ", h.maxUploadBytes/(1024*1024)))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer src.Close()

	audio, err := io.ReadAll(io.LimitReader(src, h.maxUploadBytes+1))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	if int64(len(audio)) > h.maxUploadBytes {
		common.RespondBadRequest(c, fmt.Sprintf("файл превышает лимит %d МБ", h.maxUploadBytes/(1024*1024)))
		return
	}

	// Проверяем магические байты: принимаем только реальное аудио.
	kind, err := filetype.Match(audio)
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла. Разрешены только аудиозаписи")
		return
	}
	mimeType := kind.MIME.Value
	if !allowedAudioMimeTypes[mimeType] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s)", mimeType))
		return
	}

	turn, svcErr := h.svc.AppendAudioTurn(c.Request.Context(), userID, disputeID, speaker, audio, mimeType)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}

	c.JSON(http.StatusCreated, turn)
}

// UploadURL обрабатывает POST /disputes/:id/upload-url.
func (h *DisputeHandler) UploadURL(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	key, url, err := h.svc.TurnUploadURL(c.Request.Context(), userID, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.UploadURLResponse{Key: key, URL: url})
}

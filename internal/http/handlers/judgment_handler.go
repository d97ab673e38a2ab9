package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/arbiter-backend/internal/dto"
	"github.com/ignatzorin/arbiter-backend/internal/http/handlers/common"
	"github.com/ignatzorin/arbiter-backend/internal/service"
)

// JudgmentHandler запускает разбирательство и отдаёт вердикт.
type JudgmentHandler struct {
	judgments *service.JudgmentService
	disputes  *service.DisputeService
}

// NewJudgmentHandler создаёт хэндлер.
func NewJudgmentHandler(judgments *service.JudgmentService, disputes *service.DisputeService) *JudgmentHandler {
	return &JudgmentHandler{judgments: judgments, disputes: disputes}
}

// Judge обрабатывает POST /disputes/:id/judge.
// Вызов синхронный: ответ приходит, когда вердикт готов и сохранён.
func (h *JudgmentHandler) Judge(c *gin.Context) {
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

	outcome, err := h.judgments.Adjudicate(c.Request.Context(), userID, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// Verdict обрабатывает GET /disputes/:id/verdict.
func (h *JudgmentHandler) Verdict(c *gin.Context) {
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

	verdict, audioURL, err := h.disputes.GetVerdict(c.Request.Context(), userID, disputeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.VerdictResponse{Verdict: verdict, AudioURL: audioURL})
}

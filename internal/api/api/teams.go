package api

import (
	"github.com/wb-go/wbf/ginext"

	"hackhub/internal/dto"
	"hackhub/internal/model"
)

func (h *handlers) registerTeam(c *ginext.Context) {
	eventID, ok := h.pathID(c, "eventId")
	if !ok {
		return
	}
	var req dto.RegisterTeamRequest
	if !h.bind(c, &req) {
		return
	}
	team, err := h.svc.RegisterTeam(c.Request.Context(), eventID, req.ToInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, team)
}

func (h *handlers) registerTeamPublic(c *ginext.Context) {
	var req dto.RegisterTeamRequest
	if !h.bind(c, &req) {
		return
	}
	team, err := h.svc.RegisterTeamPublic(c.Request.Context(), c.Param("identifier"), req.ToInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, team)
}

func (h *handlers) listTeams(c *ginext.Context) {
	eventID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	teams, err := h.svc.ListTeams(c.Request.Context(), accountID(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, teams)
}

func (h *handlers) updateTeam(c *ginext.Context) {
	teamID, ok := h.pathID(c, "teamId")
	if !ok {
		return
	}
	var req dto.UpdateTeamRequest
	if !h.bind(c, &req) {
		return
	}
	team, err := h.svc.UpdateTeam(c.Request.Context(), accountID(c), teamID, req.ToInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, team)
}

func (h *handlers) verifyPayment(c *ginext.Context) {
	teamID, ok := h.pathID(c, "teamId")
	if !ok {
		return
	}
	var req dto.PaymentStatusRequest
	if !h.bind(c, &req) {
		return
	}
	team, err := h.svc.VerifyPayment(c.Request.Context(), accountID(c), teamID, model.PaymentStatus(req.Status), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, team)
}

func (h *handlers) paymentHistory(c *ginext.Context) {
	teamID, ok := h.pathID(c, "teamId")
	if !ok {
		return
	}
	history, err := h.svc.PaymentHistory(c.Request.Context(), accountID(c), teamID)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, history)
}

func (h *handlers) deleteTeam(c *ginext.Context) {
	teamID, ok := h.pathID(c, "teamId")
	if !ok {
		return
	}
	if err := h.svc.DeleteTeam(c.Request.Context(), accountID(c), teamID); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, map[string]int64{"deleted_team_id": teamID})
}

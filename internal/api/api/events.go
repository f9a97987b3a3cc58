package api

import (
	"context"

	"github.com/wb-go/wbf/ginext"

	"hackhub/internal/dto"
	"hackhub/internal/model"
	"hackhub/internal/service"
)

func (h *handlers) createEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !h.bind(c, &req) {
		return
	}
	v, err := h.svc.CreateEvent(c.Request.Context(), accountID(c), req.ToModel())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, dto.NewEventResponse(v))
}

func (h *handlers) updateEvent(c *ginext.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.EventRequest
	if !h.bind(c, &req) {
		return
	}
	v, err := h.svc.UpdateEvent(c.Request.Context(), accountID(c), id, req.ToModel())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(v))
}

func (h *handlers) deleteEvent(c *ginext.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(c.Request.Context(), accountID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, map[string]int64{"deleted_event_id": id})
}

// getEvent serves drafts only to their owner; the token is optional.
func (h *handlers) getEvent(c *ginext.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	viewer := accountID(c)
	v, err := h.svc.GetEvent(c.Request.Context(), viewer, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if viewer != 0 && viewer == v.ManagerID {
		dto.SuccessResponse(c, dto.NewEventResponse(v))
		return
	}
	dto.SuccessResponse(c, dto.NewPublicEventResponse(v))
}

func (h *handlers) listEvents(c *ginext.Context) {
	filter := service.ListFilter{
		Department: c.Query("department"),
		Status:     model.EventStatus(c.Query("status")),
	}
	views, err := h.svc.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewPublicEventResponses(views))
}

func (h *handlers) listManagerEvents(c *ginext.Context) {
	views, err := h.svc.ListManagerEvents(c.Request.Context(), accountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponses(views))
}

func (h *handlers) eventStats(c *ginext.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.EventStats(c.Request.Context(), accountID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewStatsResponse(stats))
}

func (h *handlers) publish(c *ginext.Context) {
	h.setPublished(c, true)
}

func (h *handlers) unpublish(c *ginext.Context) {
	h.setPublished(c, false)
}

func (h *handlers) setPublished(c *ginext.Context, published bool) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.SetPublished(c.Request.Context(), accountID(c), id, published)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(v))
}

func (h *handlers) regenerateShareLink(c *ginext.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.RegenerateShareLink(c.Request.Context(), accountID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.ShareLinkResponse{
		EventID:    v.ID,
		ShareToken: v.ShareToken,
		Path:       "/public/events/" + v.ShareToken,
	})
}

func (h *handlers) listPublicEvents(c *ginext.Context) {
	views, err := h.svc.ListPublicEvents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewPublicEventResponses(views))
}

func (h *handlers) publicEvent(c *ginext.Context) {
	v, err := h.svc.PublicEvent(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewPublicEventResponse(v))
}

func (h *handlers) exportCSV(c *ginext.Context) {
	h.export(c, h.svc.ExportTeamsCSV)
}

func (h *handlers) exportPDF(c *ginext.Context) {
	h.export(c, h.svc.ExportTeamsPDF)
}

func (h *handlers) export(c *ginext.Context, build func(ctx context.Context, managerID, eventID int64) (*service.Document, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	doc, err := build(c.Request.Context(), accountID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().Int64("event_id", id).Str("file", doc.Filename).Int("bytes", len(doc.Body)).Msg("export generated")
	attachment(c, doc)
}

func (h *handlers) certificates(c *ginext.Context) {
	eventID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	teamID, ok := h.pathID(c, "teamId")
	if !ok {
		return
	}
	doc, err := h.svc.Certificates(c.Request.Context(), accountID(c), eventID, teamID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().Int64("event_id", eventID).Int64("team_id", teamID).Msg("certificates generated")
	attachment(c, doc)
}

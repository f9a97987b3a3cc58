package api

import (
	"github.com/wb-go/wbf/ginext"

	"hackhub/internal/dto"
)

func (h *handlers) registerManager(c *ginext.Context) {
	var req dto.ManagerRegisterRequest
	if !h.bind(c, &req) {
		return
	}
	m, token, err := h.svc.RegisterManager(c.Request.Context(), req.ToSignup())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, dto.ManagerAuthResponse{Manager: m, Token: token})
}

func (h *handlers) loginManager(c *ginext.Context) {
	var req dto.LoginRequest
	if !h.bind(c, &req) {
		return
	}
	m, token, err := h.svc.LoginManager(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.ManagerAuthResponse{Manager: m, Token: token})
}

func (h *handlers) me(c *ginext.Context) {
	m, err := h.svc.Manager(c.Request.Context(), accountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, m)
}

func (h *handlers) registerStudent(c *ginext.Context) {
	var req dto.StudentRegisterRequest
	if !h.bind(c, &req) {
		return
	}
	st, token, err := h.svc.RegisterStudent(c.Request.Context(), req.ToSignup())
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, dto.StudentAuthResponse{Student: st, Token: token})
}

func (h *handlers) loginStudent(c *ginext.Context) {
	var req dto.LoginRequest
	if !h.bind(c, &req) {
		return
	}
	st, token, err := h.svc.LoginStudent(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.StudentAuthResponse{Student: st, Token: token})
}

func (h *handlers) studentProfile(c *ginext.Context) {
	st, regs, err := h.svc.StudentProfile(c.Request.Context(), accountID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	dto.SuccessResponse(c, dto.StudentProfileResponse{Student: st, Registrations: regs})
}

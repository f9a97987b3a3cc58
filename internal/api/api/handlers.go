package api

import (
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"hackhub/cmd/middleware"
	"hackhub/internal/dto"
	"hackhub/internal/service"
	"hackhub/pkg/validator"
)

func (h *handlers) fail(c *ginext.Context, err error) {
	dto.ServiceError(c, h.log, err, h.debug)
}

func (h *handlers) pathID(c *ginext.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		dto.FieldIncorrectError(c, name)
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body into req and runs its validation rules.
func (h *handlers) bind(c *ginext.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("failed to parse request body")
		dto.InvalidJSONError(c)
		return false
	}
	if err := validator.Validate(c.Request.Context(), req); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("request validation failed")
		dto.ValidationError(c, err)
		return false
	}
	return true
}

func attachment(c *ginext.Context, doc *service.Document) {
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func accountID(c *ginext.Context) int64 {
	return middleware.AccountID(c)
}

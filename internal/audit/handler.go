package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/api"
	"gymdesk/internal/apperr"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List godoc
// @Summary      Audit trail for a subject
// @Description  Returns the append-only audit entries for a plan or membership.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        subjectKind  path      string  true  "plan or membership"
// @Param        subjectID    path      int     true  "Subject ID"
// @Success      200          {array}   Entry
// @Failure      400          {object}  api.ErrorResponse
// @Router       /audit/{subjectKind}/{subjectID} [get]
func (h *Handler) List(c *gin.Context) {
	kind := SubjectKind(c.Param("subjectKind"))
	if kind != SubjectPlan && kind != SubjectMembership {
		api.Fail(c, apperr.Validationf("unknown audit subject kind %q", c.Param("subjectKind")))
		return
	}

	subjectID, err := strconv.Atoi(c.Param("subjectID"))
	if err != nil {
		api.Fail(c, apperr.Validationf("invalid subject ID"))
		return
	}

	entries, err := h.repo.ListBySubject(c.Request.Context(), kind, subjectID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

package handlers

import (
	"net/http"

	"accounts-backend/internal/middleware"
	"accounts-backend/internal/models"

	"github.com/gin-gonic/gin"
)

type roleForm struct {
	Name        string  `form:"name" json:"name" binding:"required"`
	Description *string `form:"description" json:"description"`
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.Store.Roles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *Handler) CreateRole(c *gin.Context) {
	var form roleForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}

	role, err := h.Store.CreateRole(c.Request.Context(), form.Name, form.Description)
	if err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(c.Request.Context(), middleware.CurrentUserID(c), models.AuditEntityRole, role.ID,
		models.AuditActionCreate, "created role "+role.Name)

	c.JSON(http.StatusCreated, role)
}

// DeleteRole fails with 409 while users still reference the role.
func (h *Handler) DeleteRole(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteRole(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(c.Request.Context(), middleware.CurrentUserID(c), models.AuditEntityRole, id,
		models.AuditActionDelete, "deleted role")

	c.Status(http.StatusNoContent)
}

type personalDataForm struct {
	FirstName string `form:"first_name" json:"first_name" binding:"required"`
	LastName  string `form:"last_name" json:"last_name" binding:"required"`
}

func (h *Handler) CreatePersonalData(c *gin.Context) {
	var form personalDataForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}

	pd, err := h.Store.CreatePersonalData(c.Request.Context(), form.FirstName, form.LastName)
	if err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(c.Request.Context(), middleware.CurrentUserID(c), models.AuditEntityPersonalData, pd.ID,
		models.AuditActionCreate, "created personal data")

	c.JSON(http.StatusCreated, pd)
}

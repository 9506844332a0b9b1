package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"accounts-backend/internal/database"
	"accounts-backend/internal/middleware"
	"accounts-backend/internal/models"
	"accounts-backend/internal/security"

	"github.com/gin-gonic/gin"
)

type createUserForm struct {
	Email          string `form:"email" json:"email" binding:"required,email"`
	Password       string `form:"password" json:"password" binding:"required,min=6,max=72"`
	PersonalDataID uint   `form:"personal_data_id" json:"personal_data_id"`
	RoleID         uint   `form:"role_id" json:"role_id"`
}

// CreateUser inserts an account against existing personal data and role rows.
// Unknown ids surface as 409 from the foreign keys.
func (h *Handler) CreateUser(c *gin.Context) {
	var form createUserForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}

	hash, err := security.HashPassword(form.Password)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.CreateUser(ctx, database.NewUser{
		Email:          form.Email,
		PasswordHash:   hash,
		PersonalDataID: form.PersonalDataID,
		RoleID:         form.RoleID,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(ctx, middleware.CurrentUserID(c), models.AuditEntityUser, user.ID,
		models.AuditActionCreate, "created "+user.Email)

	c.JSON(http.StatusCreated, toUserView(user))
}

func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	users, err := h.Store.Users(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, toUserView(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UserByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "EMAIL_REQUIRED"})
		return
	}

	user, err := h.Store.UserByEmail(c.Request.Context(), email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

// DeactivateUser also closes the user's refresh sessions.
func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.Store.DeactivateUser(ctx, id); err != nil {
		fail(c, err)
		return
	}
	closed, err := h.Store.DisableUserSessions(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(ctx, middleware.CurrentUserID(c), models.AuditEntityUser, id,
		models.AuditActionDeactivate, fmt.Sprintf("deactivated, %d sessions closed", closed))

	c.JSON(http.StatusOK, gin.H{"id": id, "active": false, "sessions_closed": closed})
}

func (h *Handler) ReactivateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Store.ReactivateUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	h.Store.RecordAudit(c.Request.Context(), middleware.CurrentUserID(c), models.AuditEntityUser, id,
		models.AuditActionReactivate, "reactivated")

	c.JSON(http.StatusOK, gin.H{"id": id, "active": true})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	// the actor may have deleted themselves; the entry then keeps a NULL actor
	actor := middleware.CurrentUserID(c)
	if actor != nil && *actor == id {
		actor = nil
	}
	h.Store.RecordAudit(c.Request.Context(), actor, models.AuditEntityUser, id,
		models.AuditActionDelete, "deleted")

	c.Status(http.StatusNoContent)
}

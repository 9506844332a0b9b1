package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"accounts-backend/internal/database"
	"accounts-backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// fail writes the error response for err. Constraint errors become client errors
// with a stable detail code; anything else is logged and reported as 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "NOT_FOUND"})
	case errors.Is(err, database.ErrUniqueViolation):
		c.JSON(http.StatusConflict, gin.H{"detail": "ALREADY_EXISTS", "error": constraintColumn(err)})
	case errors.Is(err, database.ErrForeignKeyViolation):
		c.JSON(http.StatusConflict, gin.H{"detail": "REFERENCE_VIOLATION", "error": constraintColumn(err)})
	case errors.Is(err, database.ErrNotNullViolation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "MISSING_FIELD", "error": constraintColumn(err)})
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "PASSWORD_TOO_LONG"})
	case errors.Is(err, database.ErrValueTooLong):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "VALUE_TOO_LONG", "error": constraintColumn(err)})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "INTERNAL_ERROR"})
	}
}

func constraintColumn(err error) string {
	var ce *database.ConstraintError
	if errors.As(err, &ce) {
		return ce.Column
	}
	return ""
}

func invalid(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "INVALID_DATA", "error": err.Error()})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "INVALID_ID"})
		return 0, false
	}
	return uint(id), true
}

// userView is the public shape of an account; the password hash never leaves the server.
type userView struct {
	ID              uint    `json:"id"`
	Email           string  `json:"email"`
	Active          bool    `json:"active"`
	CreatedAt       string  `json:"created_at"`
	PersonalDataID  uint    `json:"personal_data_id"`
	FirstName       string  `json:"first_name,omitempty"`
	LastName        string  `json:"last_name,omitempty"`
	RoleID          uint    `json:"role_id"`
	Role            string  `json:"role,omitempty"`
	RoleDescription *string `json:"role_description,omitempty"`
}

func toUserView(u *models.User) userView {
	v := userView{
		ID:             u.ID,
		Email:          u.Email,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt.UTC().Format(time.RFC3339),
		PersonalDataID: u.PersonalDataID,
		RoleID:         u.RoleID,
	}
	if u.PersonalData != nil {
		v.FirstName = u.PersonalData.FirstName
		v.LastName = u.PersonalData.LastName
	}
	if u.Role != nil {
		v.Role = u.Role.Name
		v.RoleDescription = u.Role.Description
	}
	return v
}

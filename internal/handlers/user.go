package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-hub/internal/repositories"
)

// UserHandler manages profile endpoints.
type UserHandler struct {
	users repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GetProfile returns the caller's own profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.GetInt64("userID")

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the editable profile fields. Omitted fields keep
// their current value.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name           *string  `json:"name"`
		ProfilePicture *string  `json:"profilePicture"`
		SkillsHave     []string `json:"skillsHave"`
		SkillsWant     []string `json:"skillsWant"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	name := user.Name
	if req.Name != nil {
		name = *req.Name
	}
	picture := user.ProfilePicture
	if req.ProfilePicture != nil {
		picture = *req.ProfilePicture
	}
	skillsHave := []string(user.SkillsHave)
	if req.SkillsHave != nil {
		skillsHave = req.SkillsHave
	}
	skillsWant := []string(user.SkillsWant)
	if req.SkillsWant != nil {
		skillsWant = req.SkillsWant
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), userID, name, picture, skillsHave, skillsWant)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListUsers returns everyone except the caller, for starting conversations.
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID := c.GetInt64("userID")

	users, err := h.users.ListOthers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

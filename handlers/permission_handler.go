package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

type PermissionHandler struct {
	UserRepo repository.UserRepository
}

func NewPermissionHandler(userRepo repository.UserRepository) *PermissionHandler {
	return &PermissionHandler{UserRepo: userRepo}
}

type PermissionOverridePayload struct {
	Permission string `json:"permission"`
	Effect     string `json:"effect,omitempty"`
}

type EffectivePermissionsResponse struct {
	UserID               string                   `json:"user_id"`
	Role                 permissions.Role         `json:"role"`
	IsSuperuser          bool                     `json:"is_superuser"`
	EffectivePermissions []permissions.Permission `json:"effective_permissions"`
}

// PermissionCatalogResponse is the static permission catalog plus the
// defaults each role starts from, for admin UIs to render assignment forms.
type PermissionCatalogResponse struct {
	Groups       []permissions.PermissionGroupDefinition       `json:"groups"`
	RoleDefaults map[permissions.Role][]permissions.Permission `json:"role_defaults"`
}

type OverrideResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Permission string    `json:"permission"`
	Effect     string    `json:"effect"`
	CreatedAt  time.Time `json:"created_at"`
}

func toOverrideResponse(ov *models.PermissionOverride) OverrideResponse {
	return OverrideResponse{
		ID:         ov.ID,
		UserID:     ov.UserID,
		Permission: ov.Permission,
		Effect:     ov.Effect,
		CreatedAt:  ov.CreatedAt,
	}
}

// GetPermissionCatalog serves the statically defined permission groups and
// role defaults.
func (h *PermissionHandler) GetPermissionCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PermissionCatalogResponse{
		Groups:       permissions.DefinedPermissionGroups,
		RoleDefaults: permissions.RoleDefaults,
	})
}

// GetUserEffectivePermissions returns the resolved permission set for a user.
// Users can view their own; viewing others requires superuser.
func (h *PermissionHandler) GetUserEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	userID := chi.URLParam(r, "user_id")
	if _, err := uuid.Parse(userID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid user ID format")
		return
	}

	if caller.ID != userID && !caller.IsSuperuser {
		WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "You can only view your own permissions")
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		}
		return
	}

	writeJSON(w, http.StatusOK, EffectivePermissionsResponse{
		UserID:               user.ID,
		Role:                 user.Role,
		IsSuperuser:          user.IsSuperuser,
		EffectivePermissions: user.EffectivePermissions().Slice(),
	})
}

// ListOverrides godoc
// @Summary List permission overrides for a user
// @Description Get all allow/deny overrides stored for a user
// @Tags admin-permissions
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {array} OverrideResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/v1/users/{user_id}/permissions/overrides [get]
// @Security BearerAuth
func (h *PermissionHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if _, err := uuid.Parse(userID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid user ID format")
		return
	}

	if _, err := h.UserRepo.GetByID(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		}
		return
	}

	overrides, err := h.UserRepo.ListOverrides(userID)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list permission overrides")
		return
	}

	dtos := make([]OverrideResponse, len(overrides))
	for i := range overrides {
		dtos[i] = toOverrideResponse(&overrides[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateOverride godoc
// @Summary Add a permission override for a user
// @Description Grant (allow) or revoke (deny) a single permission on top of role defaults
// @Tags admin-permissions
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param override body PermissionOverridePayload true "Override payload"
// @Success 201 {object} OverrideResponse
// @Failure 404 {object} APIErrorResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/v1/users/{user_id}/permissions/overrides [post]
// @Security BearerAuth
func (h *PermissionHandler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if _, err := uuid.Parse(userID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid user ID format")
		return
	}

	var payload PermissionOverridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	effect := payload.Effect
	if effect == "" {
		effect = string(permissions.EffectAllow)
	}
	if !permissions.IsValidEffect(effect) {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, "Effect must be 'allow' or 'deny'")
		return
	}

	if _, err := h.UserRepo.GetByID(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		}
		return
	}

	if !permissions.IsValid(payload.Permission) {
		detail := fmt.Sprintf("Invalid permission: %s. Valid permissions: %s",
			payload.Permission, joinPermissions(permissions.All()))
		WriteAPIError(w, http.StatusConflict, ErrCodeInvalidPermission, detail)
		return
	}

	override := &models.PermissionOverride{
		UserID:     userID,
		Permission: payload.Permission,
		Effect:     effect,
	}
	if err := h.UserRepo.CreateOverride(override); err != nil {
		if errors.Is(err, repository.ErrDuplicateOverride) {
			detail := fmt.Sprintf("Permission override for '%s' already exists. Delete it first to change the effect.", payload.Permission)
			WriteAPIError(w, http.StatusConflict, ErrCodeDuplicateOverride, detail)
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create permission override")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toOverrideResponse(override))
}

// DeleteOverride godoc
// @Summary Delete a permission override
// @Description Remove a stored override, restoring the role default for that permission
// @Tags admin-permissions
// @Produce json
// @Param user_id path string true "User ID"
// @Param override_id path string true "Override ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} APIErrorResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/v1/users/{user_id}/permissions/overrides/{override_id} [delete]
// @Security BearerAuth
func (h *PermissionHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if _, err := uuid.Parse(userID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid user ID format")
		return
	}
	overrideID := chi.URLParam(r, "override_id")
	if _, err := uuid.Parse(overrideID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid override ID format")
		return
	}

	override, err := h.UserRepo.GetOverrideByID(overrideID)
	if err != nil {
		if errors.Is(err, repository.ErrOverrideNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Permission override not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve permission override")
		}
		return
	}
	if override.UserID != userID {
		WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "Override does not belong to this user")
		return
	}

	if err := h.UserRepo.DeleteOverride(overrideID); err != nil {
		if errors.Is(err, repository.ErrOverrideNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "Permission override not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete permission override")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Permission override deleted successfully"})
}

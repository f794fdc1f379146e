package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

type UserHandler struct {
	UserRepo repository.UserRepository
	Cfg      config.Config
}

func NewUserHandler(userRepo repository.UserRepository, cfg config.Config) *UserHandler {
	return &UserHandler{UserRepo: userRepo, Cfg: cfg}
}

// --- DTOs for user management ---

type UserSignupPayload struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

type UserCreatePayload struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    *string `json:"full_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser bool    `json:"is_superuser,omitempty"`
	Role        string  `json:"role,omitempty"`
}

type UserUpdatePayload struct {
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
	FullName    *string `json:"full_name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
	Role        *string `json:"role,omitempty"`
}

type UserUpdateMePayload struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
}

type UpdatePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse is the user shape returned by the API; it never carries the
// password hash or the override rows.
type UserResponse struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	FullName    *string          `json:"full_name"`
	IsActive    bool             `json:"is_active"`
	IsSuperuser bool             `json:"is_superuser"`
	Role        permissions.Role `json:"role"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toUserListResponse(users []models.User) []UserResponse {
	dtos := make([]UserResponse, len(users))
	for i := range users {
		dtos[i] = toUserResponse(&users[i])
	}
	return dtos
}

// --- Self-service endpoints ---

// GetMe returns the calling user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe lets a user change their own email or full name.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	var payload UserUpdateMePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	if payload.Email != nil {
		email, err := validateEmail(*payload.Email)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		if taken, err := h.emailTakenByOther(email, user.ID); err != nil {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
			return
		} else if taken {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
			return
		}
		user.Email = email
	}
	if payload.FullName != nil {
		if err := validateFullName(*payload.FullName); err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		user.FullName = payload.FullName
	}

	if err := h.UserRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMyPassword rotates the caller's password after verifying the
// current one.
func (h *UserHandler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}

	var payload UpdatePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}
	if err := validatePassword(payload.CurrentPassword); err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	if err := validatePassword(payload.NewPassword); err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}

	if !user.CheckPassword(payload.CurrentPassword) {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Incorrect password")
		return
	}
	if payload.CurrentPassword == payload.NewPassword {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "New password cannot be the same as the current one")
		return
	}

	if err := user.SetPassword(payload.NewPassword); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update password")
		return
	}
	if err := h.UserRepo.Update(user); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// DeleteMe removes the caller's own account. Superusers cannot remove
// themselves.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "User not found in context")
		return
	}
	if user.IsSuperuser {
		WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "Super users are not allowed to delete themselves")
		return
	}

	if err := h.UserRepo.Delete(user.ID); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// SignUp registers a new account. Self-registered users are always active
// members; privileged flags can only be set through the admin surface.
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var payload UserSignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	email, err := validateEmail(payload.Email)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	if err := validatePassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	if payload.FullName != nil {
		if err := validateFullName(*payload.FullName); err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
	}

	user := &models.User{
		Email:       email,
		FullName:    payload.FullName,
		IsActive:    true,
		IsSuperuser: false,
		Role:        permissions.RoleMember,
	}
	if err := user.SetPassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create user")
		return
	}

	if err := h.UserRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create user")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// --- Admin endpoints ---

// ListUsers godoc
// @Summary List all users
// @Description Get a paginated list of all users
// @Tags admin-users
// @Produce json
// @Param skip query int false "Number of records to skip"
// @Param limit query int false "Maximum records to return"
// @Success 200 {object} ListResponse
// @Failure 403 {object} APIErrorResponse
// @Router /api/v1/users [get]
// @Security BearerAuth
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, h.Cfg)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	users, count, err := h.UserRepo.List(skip, limit)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: toUserListResponse(users), Count: count})
}

// CreateUser godoc
// @Summary Create a new user
// @Description Add a new user with explicit role and flags
// @Tags admin-users
// @Accept json
// @Produce json
// @Param user body UserCreatePayload true "User creation payload"
// @Success 201 {object} UserResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/v1/users [post]
// @Security BearerAuth
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload UserCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	email, err := validateEmail(payload.Email)
	if err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	if err := validatePassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}
	if payload.FullName != nil {
		if err := validateFullName(*payload.FullName); err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
	}

	role := permissions.RoleMember
	if payload.Role != "" {
		if !permissions.IsValidRole(payload.Role) {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, "Invalid role: must be 'librarian' or 'member'")
			return
		}
		role = permissions.Role(payload.Role)
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	user := &models.User{
		Email:       email,
		FullName:    payload.FullName,
		IsActive:    isActive,
		IsSuperuser: payload.IsSuperuser,
		Role:        role,
	}
	if err := user.SetPassword(payload.Password); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create user")
		return
	}

	if err := h.UserRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create user")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser godoc
// @Summary Get a single user by ID
// @Description Users can fetch themselves; fetching others requires superuser
// @Tags admin-users
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} UserResponse
// @Failure 403 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/v1/users/{user_id} [get]
// @Security BearerAuth
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
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
		WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "The user doesn't have enough privileges")
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
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateUser godoc
// @Summary Update an existing user
// @Description Full admin update including role, flags, and password
// @Tags admin-users
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param user body UserUpdatePayload true "User update payload"
// @Success 200 {object} UserResponse
// @Failure 404 {object} APIErrorResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/v1/users/{user_id} [patch]
// @Security BearerAuth
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if _, err := uuid.Parse(userID); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid user ID format")
		return
	}

	var payload UserUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "The user with this id does not exist in the system")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve user")
		}
		return
	}

	if payload.Email != nil {
		email, err := validateEmail(*payload.Email)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		if taken, err := h.emailTakenByOther(email, user.ID); err != nil {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
			return
		} else if taken {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
			return
		}
		user.Email = email
	}
	if payload.Password != nil {
		if err := validatePassword(*payload.Password); err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		if err := user.SetPassword(*payload.Password); err != nil {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
			return
		}
	}
	if payload.FullName != nil {
		if err := validateFullName(*payload.FullName); err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
			return
		}
		user.FullName = payload.FullName
	}
	if payload.IsActive != nil {
		user.IsActive = *payload.IsActive
	}
	if payload.IsSuperuser != nil {
		user.IsSuperuser = *payload.IsSuperuser
	}
	if payload.Role != nil {
		if !permissions.IsValidRole(*payload.Role) {
			WriteAPIError(w, http.StatusUnprocessableEntity, ErrCodeValidationFailed, "Invalid role: must be 'librarian' or 'member'")
			return
		}
		user.Role = permissions.Role(*payload.Role)
	}

	if err := h.UserRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			WriteAPIError(w, http.StatusConflict, ErrCodeConflict, "User with this email already exists")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Removes a user and cascades their permission overrides
// @Tags admin-users
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/v1/users/{user_id} [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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
	if caller.ID == userID {
		WriteAPIError(w, http.StatusForbidden, ErrCodeForbidden, "Super users are not allowed to delete themselves")
		return
	}

	if err := h.UserRepo.Delete(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			WriteAPIError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete user")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// emailTakenByOther reports whether some other user already owns the email.
func (h *UserHandler) emailTakenByOther(email, selfID string) (bool, error) {
	existing, err := h.UserRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != selfID, nil
}

package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/auth"
	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

var userRepo *database.UserRepo

// InitUserRepo initializes the user repository
func InitUserRepo() {
	userRepo = database.NewUserRepo()
}

// listUsersHandler handles GET /api/users
func listUsersHandler(c echo.Context) error {
	users, err := userRepo.List()
	if err != nil {
		c.Logger().Error("list users error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list users",
		})
	}

	return c.JSON(http.StatusOK, users)
}

// createUserHandler handles POST /api/users
func createUserHandler(c echo.Context) error {
	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "username is required",
		})
	}
	if len(req.Password) < auth.MinPasswordLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "password must be at least 8 characters",
		})
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !models.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid role",
		})
	}

	// Check if username exists
	exists, _ := userRepo.ExistsByUsername(req.Username)
	if exists {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "username already exists",
		})
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.Logger().Error("hash password error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to create user",
		})
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		Username:     req.Username,
		DisplayName:  displayName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := userRepo.Create(user); err != nil {
		c.Logger().Error("create user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to create user",
		})
	}

	Audit.LogFromContext(c, models.ActionUserCreate, user.Username, map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return c.JSON(http.StatusCreated, user)
}

// getUserHandler handles GET /api/users/:id
func getUserHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user ID",
		})
	}

	user, err := userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		c.Logger().Error("get user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get user",
		})
	}

	return c.JSON(http.StatusOK, user)
}

// updateUserHandler handles PUT /api/users/:id
func updateUserHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user ID",
		})
	}

	user, err := userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		c.Logger().Error("get user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get user",
		})
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid role",
			})
		}
		user.Role = *req.Role
	}
	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}
	if req.Password != nil {
		if len(*req.Password) < auth.MinPasswordLength {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "password must be at least 8 characters",
			})
		}
		passwordHash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.Logger().Error("hash password error: ", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to update user",
			})
		}
		user.PasswordHash = passwordHash
	}

	if err := userRepo.Update(user); err != nil {
		c.Logger().Error("update user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to update user",
		})
	}

	// Disabling an account kills its sessions immediately
	if req.Disabled != nil && *req.Disabled {
		authService.RevokeAllSessions(user.ID)
	}

	Audit.LogFromContext(c, models.ActionUserUpdate, user.Username, nil)

	return c.JSON(http.StatusOK, user)
}

// deleteUserHandler handles DELETE /api/users/:id
func deleteUserHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user ID",
		})
	}

	actor := getUserFromContext(c)
	if actor != nil && actor.ID == id {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "cannot delete your own account",
		})
	}

	user, err := userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		c.Logger().Error("get user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get user",
		})
	}

	if err := userRepo.Delete(id); err != nil {
		c.Logger().Error("delete user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to delete user",
		})
	}

	Audit.LogFromContext(c, models.ActionUserDelete, user.Username, nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}

// updateProfileHandler handles PUT /api/profile — self-service edits
// limited to display name, email and password.
func updateProfileHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		if len(*req.Password) < auth.MinPasswordLength {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "password must be at least 8 characters",
			})
		}
		passwordHash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.Logger().Error("hash password error: ", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to update profile",
			})
		}
		user.PasswordHash = passwordHash
	}

	if err := userRepo.Update(user); err != nil {
		c.Logger().Error("update profile error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to update profile",
		})
	}

	Audit.LogFromContext(c, models.ActionUserUpdate, user.Username, nil)

	return c.JSON(http.StatusOK, user)
}

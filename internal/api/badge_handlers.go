package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

var badgeRepo *database.BadgeRepo

// InitBadgeRepo initializes the badge repository
func InitBadgeRepo() {
	badgeRepo = database.NewBadgeRepo()
}

// listBadgesHandler handles GET /api/badges
func listBadgesHandler(c echo.Context) error {
	badges, err := badgeRepo.List()
	if err != nil {
		c.Logger().Error("list badges error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list badges",
		})
	}

	return c.JSON(http.StatusOK, badges)
}

// createBadgeHandler handles POST /api/badges
func createBadgeHandler(c echo.Context) error {
	var req models.CreateBadgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.Slug == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "slug and name are required",
		})
	}

	if _, err := badgeRepo.GetBySlug(req.Slug); err == nil {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "badge slug already exists",
		})
	}

	badge := &models.Badge{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
	}

	if err := badgeRepo.Create(badge); err != nil {
		c.Logger().Error("create badge error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to create badge",
		})
	}

	Audit.LogFromContext(c, models.ActionBadgeCreate, badge.Slug, nil)

	return c.JSON(http.StatusCreated, badge)
}

// updateBadgeHandler handles PUT /api/badges/:id
func updateBadgeHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid badge ID",
		})
	}

	badge, err := badgeRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrBadgeNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "badge not found",
			})
		}
		c.Logger().Error("get badge error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get badge",
		})
	}

	var req models.UpdateBadgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.Name != nil {
		badge.Name = *req.Name
	}
	if req.Description != nil {
		badge.Description = *req.Description
	}
	if req.Icon != nil {
		badge.Icon = *req.Icon
	}

	if err := badgeRepo.Update(badge); err != nil {
		c.Logger().Error("update badge error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to update badge",
		})
	}

	Audit.LogFromContext(c, models.ActionBadgeUpdate, badge.Slug, nil)

	return c.JSON(http.StatusOK, badge)
}

// deleteBadgeHandler handles DELETE /api/badges/:id
func deleteBadgeHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid badge ID",
		})
	}

	if err := badgeRepo.Delete(id); err != nil {
		switch {
		case errors.Is(err, database.ErrBadgeNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "badge not found",
			})
		case errors.Is(err, database.ErrBadgeSystem):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "system badges cannot be deleted",
			})
		default:
			c.Logger().Error("delete badge error: ", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to delete badge",
			})
		}
	}

	Audit.LogFromContext(c, models.ActionBadgeDelete, c.Param("id"), nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "badge deleted",
	})
}

// awardBadgeHandler handles POST /api/badges/:id/award
//
// Manual grant by a teacher or admin. Uses the same guarded insert as
// the first-time hook, so double submissions cannot double-award.
func awardBadgeHandler(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid badge ID",
		})
	}

	var req models.AwardBadgeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "user_id is required",
		})
	}

	badge, err := badgeRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, database.ErrBadgeNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "badge not found",
			})
		}
		c.Logger().Error("get badge error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get badge",
		})
	}

	if _, err := userRepo.GetByID(req.UserID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		c.Logger().Error("get user error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to award badge",
		})
	}

	actor := getUserFromContext(c)
	var awardedBy *int64
	if actor != nil {
		awardedBy = &actor.ID
	}

	if err := badgeRepo.GrantOnce(req.UserID, badge.ID, awardedBy, req.Note); err != nil {
		if errors.Is(err, database.ErrAwardAlreadyMade) {
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "badge already awarded to this user",
			})
		}
		c.Logger().Error("award badge error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to award badge",
		})
	}

	Audit.LogFromContext(c, models.ActionBadgeAward, badge.Slug, map[string]interface{}{
		"user_id": req.UserID,
	})

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "badge awarded",
	})
}

// listMyAwardsHandler handles GET /api/badges/awards/me
func listMyAwardsHandler(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	awards, err := badgeRepo.ListAwardsForUser(user.ID)
	if err != nil {
		c.Logger().Error("list awards error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list awards",
		})
	}

	return c.JSON(http.StatusOK, awards)
}

// listUserAwardsHandler handles GET /api/badges/awards/:userId
func listUserAwardsHandler(c echo.Context) error {
	userID, err := parseID(c.Param("userId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user ID",
		})
	}

	awards, err := badgeRepo.ListAwardsForUser(userID)
	if err != nil {
		c.Logger().Error("list awards error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list awards",
		})
	}

	return c.JSON(http.StatusOK, awards)
}

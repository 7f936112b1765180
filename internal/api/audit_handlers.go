package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

var auditRepo *database.AuditRepo

// InitAuditRepo initializes the audit repository
func InitAuditRepo() {
	auditRepo = database.NewAuditRepo()
}

// AuditLogger provides methods to log audit events from handlers
type AuditLogger struct{}

// Log logs an audit event. Audit failures never fail the request.
func (l *AuditLogger) Log(userID int64, username, action, target string, details interface{}, ipAddress string) {
	if auditRepo == nil {
		auditRepo = database.NewAuditRepo()
	}
	if err := auditRepo.Log(userID, username, action, target, details, ipAddress); err != nil {
		// Swallowed; the triggering operation already succeeded.
	}
}

// LogFromContext logs an audit event using user info from context
func (l *AuditLogger) LogFromContext(c echo.Context, action, target string, details interface{}) {
	user := getUserFromContext(c)
	var userID int64
	var username string
	if user != nil {
		userID = user.ID
		username = user.Username
	}
	l.Log(userID, username, action, target, details, c.RealIP())
}

// Global audit logger instance
var Audit = &AuditLogger{}

// listAuditLogsHandler handles GET /api/audit
func listAuditLogsHandler(c echo.Context) error {
	filter := models.AuditFilter{
		Limit:  50,
		Offset: 0,
	}

	// Parse query parameters
	if limit := c.QueryParam("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 && l <= 1000 {
			filter.Limit = l
		}
	}
	if offset := c.QueryParam("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if userID := c.QueryParam("user_id"); userID != "" {
		if id, err := strconv.ParseInt(userID, 10, 64); err == nil {
			filter.UserID = &id
		}
	}
	filter.Action = c.QueryParam("action")
	filter.ActionPrefix = c.QueryParam("action_prefix")
	if start := c.QueryParam("start"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			filter.StartTime = t
		}
	}
	if end := c.QueryParam("end"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			filter.EndTime = t
		}
	}

	logs, total, err := auditRepo.List(filter)
	if err != nil {
		c.Logger().Error("list audit logs error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list audit logs",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/models"
)

// QRVerifyRequest is the body of POST /api/auth/qr/verify
type QRVerifyRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// generateQRHandler handles POST /api/auth/qr
//
// Mints a login token for the calling (not yet authenticated) device.
// The client renders the token as a QR code itself; the server never
// produces an image.
func generateQRHandler(c echo.Context) error {
	resp, err := authService.GenerateQR(c.RealIP(), c.Request().UserAgent())
	if err != nil {
		c.Logger().Error("qr generate error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to generate code",
		})
	}

	Audit.Log(0, "", models.ActionQRGenerate, "", nil, c.RealIP())

	return c.JSON(http.StatusOK, resp)
}

// qrStatusHandler handles GET /api/auth/qr/:token
//
// Always 200; the state lives in the body so the polling device can
// drive its UI off a single shape.
func qrStatusHandler(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "token is required",
		})
	}

	status, err := authService.QRStatus(token)
	if err != nil {
		c.Logger().Error("qr status error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read code status",
		})
	}

	return c.JSON(http.StatusOK, status)
}

// verifyQRHandler handles POST /api/auth/qr/verify
//
// Called from the already-authenticated scanning device. On success the
// response carries the fresh session for the issuing device.
func verifyQRHandler(c echo.Context) error {
	var req QRVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	resp, err := authService.VerifyQR(req.Token, req.Username, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return classifyQRError(c, err)
	}

	Audit.LogFromContext(c, models.ActionQRVerify, req.Username, map[string]interface{}{
		"user_id": resp.User.ID,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":    resp.User.Summary(),
		"token":   resp.Token,
		"session": resp.Session,
	})
}

// watchQRHandler handles GET /api/auth/qr/:token/watch
//
// WebSocket variant of the status poll: the server watches the token
// and pushes each observed state, closing after a terminal one. Same
// state machine as qrStatusHandler, only delivery timing differs.
func watchQRHandler(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "token is required",
		})
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var last models.QRTokenStatus
	for {
		status, err := authService.QRStatus(token)
		if err != nil {
			c.Logger().Error("qr watch error: ", err)
			return nil
		}

		if status.Status != last {
			last = status.Status
			if err := ws.WriteJSON(status); err != nil {
				return nil
			}
		}

		switch status.Status {
		case models.QRStatusUsed, models.QRStatusExpired, models.QRStatusNotFound:
			return nil
		}

		<-ticker.C
	}
}

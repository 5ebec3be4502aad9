package handlers

import (
	"errors"
	"strings"

	"github.com/fitclub-app/GymClubBack/internal/models"
	notifyws "github.com/fitclub-app/GymClubBack/internal/websocket"
	"github.com/fitclub-app/GymClubBack/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// NotificationHandler upgrades authenticated connections and registers
// them with the push hub. Clients only listen; all state changes go
// through the REST surface.
type NotificationHandler struct {
	hub       *notifyws.Hub
	jwtSecret string
}

func NewNotificationHandler(hub *notifyws.Hub, jwtSecret string) *NotificationHandler {
	return &NotificationHandler{hub: hub, jwtSecret: jwtSecret}
}

func (h *NotificationHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return errorJSON(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required", codeValidation)
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return unauthorized(c)
	}
	role, ok := models.NormalizeRole(claims.Role)
	if !ok {
		return unauthorized(c)
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", role)
	c.Locals("gym_id", claims.GymID)
	return c.Next()
}

func (h *NotificationHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	gymID, _ := conn.Locals("gym_id").(string)
	client := notifyws.NewClient(h.hub, conn, userID, gymID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *NotificationHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/circulink/internal/logging"
	"github.com/iliyamo/circulink/internal/realtime"
)

// WSHandler upgrades authenticated requests to the push channel.
type WSHandler struct {
	Hub      *realtime.Hub
	Upgrader websocket.Upgrader
}

// NewWSHandler accepts any origin; the access token is the credential.
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		Hub: hub,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Connect handles GET /v1/ws.  The client joins its user channel, its role
// channel and the broadcast channel.
func (h *WSHandler) Connect(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return nil
	}
	conn, err := h.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logging.Ctx(c.Request().Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}
	if !realtime.NewClient(h.Hub, conn, a.ID, realtime.ChannelsFor(a.ID, a.Role)).Start() {
		logging.Ctx(c.Request().Context()).Warn().Uint64("user_id", a.ID).Msg("websocket hub stopped")
	}
	return nil
}

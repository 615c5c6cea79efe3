package game

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
)

type GameHandler struct {
	lobby     *lobby
	publicURL string
	log       zerolog.Logger
	upgrader  websocket.Upgrader
}

func NewGameHandler(l *lobby, publicURL string, log zerolog.Logger) *GameHandler {
	return &GameHandler{
		lobby:     l,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // origin is enforced by middleware
		},
	}
}

// CreateRoomHandler upgrades the connection and spins up a fresh room. The
// client identifies itself afterwards with a join message over the socket.
func (h *GameHandler) CreateRoomHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	session := NewWebsocketSession(conn)

	room, err := h.lobby.CreateRoom(ctx.Request.Context())
	if err != nil {
		session.Close(ErrLobbyClosed.Error())
		return
	}

	room.Attach(ctx.Request.Context(), session)
	go room.ReadPump(session)
}

// JoinRoomHandler resolves a join code and hands the connection to the room.
// An unknown code is reported over the socket before closing it, since by
// then the HTTP response is already hijacked.
func (h *GameHandler) JoinRoomHandler(ctx *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(ctx.Param("code")))

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	session := NewWebsocketSession(conn)

	room, err := h.lobby.LookupRoom(ctx.Request.Context(), code)
	if err != nil {
		if data, merr := marshalError("Room not found"); merr == nil {
			session.Write(data)
		}
		session.Close(ErrRoomNotFound.Error())
		return
	}

	room.Attach(ctx.Request.Context(), session)
	go room.ReadPump(session)
}

// RoomQRHandler renders the join URL for a room as a PNG QR code, for host
// screens to display.
func (h *GameHandler) RoomQRHandler(ctx *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(ctx.Param("code")))

	if _, err := h.lobby.LookupRoom(ctx.Request.Context(), code); err != nil {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/play/"+code, qrcode.Medium, 256)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "qr-encoding-failed"})
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

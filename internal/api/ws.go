package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var searchUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleSearchSocket streams search state snapshots to the UI so it can
// render loading phases without polling.
func (h *Handler) handleSearchSocket(c *gin.Context) {
	conn, err := searchUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("search websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	snapshots, cancel := h.cafes.Subscribe()
	defer cancel()

	if err := conn.WriteJSON(h.cafes.Current()); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

package controller

import (
	"leadflow/store"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ActivityController struct {
	Store  *store.Store
	Hub    *utils.ActivityHub
	Logger *logrus.Entry
}

func NewActivityController(st *store.Store, hub *utils.ActivityHub, logger *logrus.Entry) *ActivityController {
	return &ActivityController{
		Store:  st,
		Hub:    hub,
		Logger: logger,
	}
}

// GetActivity returns the latest activity entries, newest first
func (ac *ActivityController) GetActivity(c *fiber.Ctx) error {
	entries, err := ac.Store.ListActivity(c.UserContext())
	if err != nil {
		return storageFailure(c, "list_activity", err)
	}
	return c.JSON(entries)
}

// RequireUpgrade rejects plain HTTP requests on websocket routes
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return utils.ErrorResponse(c, fiber.StatusUpgradeRequired, "websocket upgrade required", nil)
}

// StreamActivity pushes each new activity entry to the client as JSON until it disconnects
func (ac *ActivityController) StreamActivity(conn *websocket.Conn) {
	entries, unsubscribe := ac.Hub.Subscribe()
	defer unsubscribe()

	// the client never sends anything useful; reading only detects the disconnect
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	// the conn is released once we return, so the reader must be gone by then
	defer func() {
		_ = conn.Close()
		<-closed
	}()

	ac.Logger.Debug("Activity stream opened")
	for {
		select {
		case <-closed:
			ac.Logger.Debug("Activity stream closed by client")
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := conn.WriteJSON(entry); err != nil {
				ac.Logger.WithError(err).Debug("Activity stream write failed")
				return
			}
		}
	}
}

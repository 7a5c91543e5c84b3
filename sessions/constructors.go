package sessions

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/normalize"
	"github.com/Desarso/docassist/stores"
)

// NewController creates the controller of one session with an empty
// conversation.
func NewController(sessionID string, profile Profile, normalizer *normalize.Normalizer, invoker Invoker) *Controller {
	return &Controller{
		id:           sessionID,
		profile:      profile,
		normalizer:   normalizer,
		invoker:      invoker,
		conversation: stores.NewConversation(),
		lastActive:   time.Now(),
		logger:       logger.ForSession("SESSION", sessionID),
	}
}

// NewWSSession binds a controller to a websocket connection.
func NewWSSession(controller *Controller, conn *websocket.Conn) *WSSession {
	l := logger.ForSession("WS", controller.ID())
	return &WSSession{
		Controller: controller,
		Writer: &WebSocketWriter{
			Conn:         conn,
			Logger:       l,
			WriteTimeout: 10 * time.Second,
		},
		Logger: l,
	}
}

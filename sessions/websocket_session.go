package sessions

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Desarso/docassist/models"
)

// ReadLimit bounds a single websocket message. It leaves room for a base64
// upload somewhat over models.MaxUploadBytes so that the size check in
// SetUpload can answer with a notice instead of a dropped connection.
const ReadLimit = int64(models.MaxUploadBytes)*2 + 64<<10

// WSSession drives one controller from a websocket connection. Every
// browser action arrives as a models.WS_Event and is answered with state,
// notice and done frames.
type WSSession struct {
	Controller *Controller
	Writer     *WebSocketWriter
	Logger     *log.Logger

	inflight sync.WaitGroup
}

// Run reads events until the connection closes or ctx is cancelled, then
// waits for a submission still in flight.
func (s *WSSession) Run(ctx context.Context) error {
	s.Writer.Conn.SetReadLimit(ReadLimit)
	defer s.inflight.Wait()

	if err := s.Writer.WriteState(Result{Session: s.Controller.View()}); err != nil {
		return fmt.Errorf("write initial state: %w", err)
	}

	for {
		var event models.WS_Event
		if err := s.Writer.Conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Warn("websocket read failed", "err", err)
				return err
			}
			s.Logger.Info("websocket closed")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.HandleEvent(ctx, event)
	}
}

// HandleEvent applies one event. Submissions run in the background so that
// a new chat can still be started while an answer is pending.
func (s *WSSession) HandleEvent(ctx context.Context, event models.WS_Event) {
	s.Logger.Debug("event", "type", event.Type)

	switch event.Type {
	case models.EventSubmit:
		if s.Controller.State() == StateProcessing {
			s.respond(s.Controller.result(models.ErrBusy))
			return
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.respond(s.Controller.Submit(ctx, event.Text))
			if err := s.Writer.WriteDone(); err != nil {
				s.Logger.Warn("write done frame", "err", err)
			}
		}()
	case models.EventUpload:
		data, err := base64.StdEncoding.DecodeString(event.Data)
		if err != nil {
			s.respond(s.Controller.result(fmt.Errorf("%w: %s is not valid base64", models.ErrExtraction, event.Filename)))
			return
		}
		s.respond(s.Controller.SetUpload(event.Filename, data))
	case models.EventClearUpload:
		s.respond(s.Controller.ClearUpload())
	case models.EventNewChat:
		s.respond(s.Controller.NewChat())
	default:
		s.respond(Result{
			Session: s.Controller.View(),
			Notice:  warning(fmt.Sprintf("Unknown action %q.", event.Type)),
		})
	}
}

func (s *WSSession) respond(result Result) {
	if err := s.Writer.WriteState(result); err != nil {
		s.Logger.Warn("write state frame", "err", err)
		return
	}
	if result.Notice != nil {
		if err := s.Writer.WriteNotice(result.Notice); err != nil {
			s.Logger.Warn("write notice frame", "err", err)
		}
	}
}

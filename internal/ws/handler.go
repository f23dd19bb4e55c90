package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
	"github.com/DoyleJ11/fleet-bracket/internal/hub"
	"github.com/DoyleJ11/fleet-bracket/internal/lobby"
	"github.com/DoyleJ11/fleet-bracket/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 10 * time.Minute
)

func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := h.Lookup(r.Context(), code)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := logger.With(zap.String("session", code), zap.String("client", clientID))

		out := make(chan lobby.Snapshot, 8)
		if err := lb.Send(r.Context(), lobby.Join{ClientID: clientID, Outbox: out}); err != nil {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer lb.Send(context.Background(), lobby.Leave{ClientID: clientID})
		log.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// session shut down or dropped us as too slow
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					state := types.NewSnapshot(code, snap.Version, snap.Session, snap.Events)
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := wsjson.Write(ctx, conn, types.ServerMessage{Type: "StateSnapshot", State: &state})
					cancel()
					if err != nil {
						log.Debug("snapshot write failed", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				sendError(r.Context(), conn, "unknown command "+cm.Type)
				continue
			}

			if err := lb.Send(r.Context(), lobby.FromClient{Cmd: cmd}); err != nil {
				return
			}
		}
	}
}

func sendError(ctx context.Context, conn *websocket.Conn, msg string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.ServerMessage{Type: "Error", Error: msg})
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "Decide":
		choice := engine.Choice(m.Choice)
		if !choice.Valid() {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdDecide, Choice: choice}, true
	case "Pick":
		if m.Index == nil || (*m.Index != 0 && *m.Index != 1) {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdPick, Side: *m.Index}, true
	case "StartTournament":
		return engine.Command{Type: engine.CmdStartTournament}, true
	case "ShowResults":
		return engine.Command{Type: engine.CmdShowResults}, true
	case "Restart":
		return engine.Command{Type: engine.CmdRestart}, true
	case "RedoTournament":
		return engine.Command{Type: engine.CmdRedoTournament}, true
	case "AbortToResults":
		return engine.Command{Type: engine.CmdAbortToResults}, true
	case "Reload":
		return engine.Command{Type: engine.CmdReload}, true
	case "SetFilter":
		return engine.Command{Type: engine.CmdSetFilter, Filter: engine.Filter{Faction: m.Faction, Type: m.ShipType}}, true
	case "ImageFailed":
		if m.ID == "" {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdImageFailed, ItemID: m.ID}, true
	default:
		return engine.Command{}, false
	}
}

// Package ws bridges WebSocket clients and the world loop: one reader and
// one writer goroutine per connection, with the world goroutine never
// blocking on either.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"wildmere.gg/internal/protocol"
	"wildmere.gg/internal/sim/world"
)

// outQueueSize bounds the per-client frame queue. State frames use
// drop-oldest semantics inside the world, so a modest queue suffices.
const outQueueSize = 64

// PlayerLoader resolves a session id to its persisted snapshot before the
// join request enters the world loop.
type PlayerLoader interface {
	LoadPlayer(ctx context.Context, id string) (*world.PlayerSnapshot, error)
}

type Server struct {
	world *world.World
	store PlayerLoader
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, store PlayerLoader, logger *log.Logger) *Server {
	return &Server{
		world: w,
		store: store,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// clientIntents is the set of message types a connection may forward into
// the world loop. Everything else is dropped at the transport.
var clientIntents = map[string]bool{
	protocol.TypeInput:         true,
	protocol.TypeChat:          true,
	protocol.TypeTyping:        true,
	protocol.TypeSetName:       true,
	protocol.TypeUseItem:       true,
	protocol.TypeBuild:         true,
	protocol.TypeDemolish:      true,
	protocol.TypeStoreDeposit:  true,
	protocol.TypeStoreWithdraw: true,
	protocol.TypeApprovalVote:  true,
	protocol.TypeCommunity:     true,
	protocol.TypeChunkRequest:  true,
	protocol.TypeSetLocale:     true,
	protocol.TypePing:          true,
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(r.Context(), conn)
		if playerID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || !clientIntents[base.Type] {
				continue
			}
			s.world.Inbox() <- world.IntentEnvelope{PlayerID: playerID, Type: base.Type, Raw: msg}
		}

		s.world.Leave() <- world.LeaveRequest{PlayerID: playerID, Out: out}
	}
}

// handshake enforces HELLO-first: the session id becomes the player id,
// minted fresh when the client presents none.
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (string, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return "", nil
	}

	playerID := strings.TrimSpace(hello.SessionID)
	var saved *world.PlayerSnapshot
	if playerID == "" {
		playerID = uuid.NewString()
	} else if s.store != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		saved, err = s.store.LoadPlayer(loadCtx, playerID)
		cancel()
		if err != nil {
			s.log.Printf("[ws] load %s: %v", playerID, err)
			closePolicy(conn, "load failed")
			return "", nil
		}
	}

	out := make(chan []byte, outQueueSize)
	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		PlayerID: playerID,
		Name:     hello.Name,
		Locale:   hello.Locale,
		Saved:    saved,
		Out:      out,
		Resp:     respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- world.LeaveRequest{PlayerID: playerID, Out: out}
		return "", nil
	}
	return playerID, out
}

func closePolicy(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// SessionHandler mints session ids for clients that have none. POST only;
// the id doubles as the persistent player id.
func SessionHandler() http.HandlerFunc {
	type sessionResp struct {
		SessionID string `json:"session_id"`
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(sessionResp{SessionID: uuid.NewString()})
	}
}

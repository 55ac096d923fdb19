package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	executor "github.com/hanpama/gqlexec/internal/executor"
	language "github.com/hanpama/gqlexec/internal/language"
	reqid "github.com/hanpama/gqlexec/internal/reqid"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// subprotocol is the GraphQL over WebSocket protocol spoken by serveWebSocket.
const subprotocol = "graphql-transport-ws"

const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// Close codes defined by the protocol.
const (
	closeInvalidMessage  = 4400
	closeUnauthorized    = 4401
	closeDuplicateID     = 4409
	closeTooManyInitReqs = 4429
)

type wsInbound struct {
	ID      string              `json:"id,omitempty"`
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type wsOutbound struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type wsConn struct {
	h    *Handler
	conn *websocket.Conn
	rid  string

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.opt.CORS.AllowedOrigins) > 0 {
		return originAllowed(h.opt.CORS.AllowedOrigins, origin)
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	rid, _ := reqid.FromContext(r.Context())
	c := &wsConn{h: h, conn: conn, rid: rid, subs: make(map[string]context.CancelFunc)}
	h.logger.Debug("websocket opened", zap.String("request_id", rid))

	ctx, cancel := context.WithCancel(r.Context())
	var wg conc.WaitGroup
	c.readLoop(ctx, &wg)
	cancel()
	wg.Wait()
	_ = conn.Close()
	h.logger.Debug("websocket closed", zap.String("request_id", rid))
}

func (c *wsConn) readLoop(ctx context.Context, wg *conc.WaitGroup) {
	acked := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsInbound
		if err := decoder.Unmarshal(data, &msg); err != nil {
			c.close(closeInvalidMessage, "Invalid message received")
			return
		}
		switch msg.Type {
		case msgConnectionInit:
			if acked {
				c.close(closeTooManyInitReqs, "Too many initialisation requests")
				return
			}
			acked = true
			c.send(wsOutbound{Type: msgConnectionAck})
		case msgPing:
			c.send(wsOutbound{Type: msgPong})
		case msgPong:
		case msgSubscribe:
			if !acked {
				c.close(closeUnauthorized, "Unauthorized")
				return
			}
			var req GraphQLRequest
			if msg.ID == "" || decoder.Unmarshal(msg.Payload, &req) != nil {
				c.close(closeInvalidMessage, "Invalid message received")
				return
			}
			subCtx, ok := c.register(ctx, msg.ID)
			if !ok {
				c.close(closeDuplicateID, "Subscriber for "+msg.ID+" already exists")
				return
			}
			id := msg.ID
			wg.Go(func() {
				defer c.unregister(id)
				c.run(subCtx, id, req)
			})
		case msgComplete:
			c.unregister(msg.ID)
		default:
			c.close(closeInvalidMessage, "Invalid message received")
			return
		}
	}
}

func (c *wsConn) register(ctx context.Context, id string) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[id]; ok {
		return nil, false
	}
	subCtx, cancel := context.WithCancel(ctx)
	c.subs[id] = cancel
	return subCtx, true
}

func (c *wsConn) unregister(id string) {
	c.mu.Lock()
	cancel, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// run executes one subscribe message. Queries and mutations yield a single
// next message; subscriptions yield one per source event.
func (c *wsConn) run(ctx context.Context, id string, req GraphQLRequest) {
	doc, errs := c.h.document(req.Query)
	if len(errs) > 0 {
		c.send(wsOutbound{ID: id, Type: msgError, Payload: executor.ErrorsOf(errs)})
		return
	}
	r := executor.Request{
		Document:      doc,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		RootValue:     c.h.opt.RootValue,
	}

	op := selectOperation(doc, req.OperationName)
	if op == nil || op.Operation != language.Subscription {
		res, err := c.h.exec.ExecuteRequest(ctx, r)
		if err != nil {
			return
		}
		if res.DataAbsent {
			c.send(wsOutbound{ID: id, Type: msgError, Payload: res.Errors})
			return
		}
		c.send(wsOutbound{ID: id, Type: msgNext, Payload: res})
		c.send(wsOutbound{ID: id, Type: msgComplete})
		return
	}

	stream, res, err := c.h.exec.Subscribe(ctx, r)
	if err != nil {
		return
	}
	if res != nil {
		c.send(wsOutbound{ID: id, Type: msgError, Payload: res.Errors})
		return
	}
	for res := range stream {
		c.send(wsOutbound{ID: id, Type: msgNext, Payload: res})
	}
	if ctx.Err() == nil {
		c.send(wsOutbound{ID: id, Type: msgComplete})
	}
}

func (c *wsConn) send(msg wsOutbound) {
	b, err := encoder.Marshal(msg)
	if err != nil {
		c.h.logger.Error("encode websocket message", zap.String("request_id", c.rid), zap.Error(err))
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.h.logger.Debug("websocket write failed", zap.String("request_id", c.rid), zap.Error(err))
	}
}

func (c *wsConn) close(code int, text string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

/*
 * Copyright 2026 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/server/logging"
)

const (
	sendQueueSize  = 64
	maxMessageSize = 16 << 20

	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

// conn adapts one WebSocket connection to the session interface of the
// document registry.
type conn struct {
	id string
	ws *websocket.Conn

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	wsOnce    sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		id:   xid.New().String(),
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// ID implements documents.Session.
func (c *conn) ID() string {
	return c.id
}

// Send implements documents.Session. It never blocks: awareness frames
// are dropped when the queue is full, a sync frame that does not fit
// tears the connection down so the client reconnects and resyncs.
func (c *conn) Send(msg protocol.Message) {
	data, err := msg.Encode()
	if err != nil {
		logging.DefaultLogger().Errorf("encode frame for %s: %v", c.id, err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		if msg.Type == protocol.TypeAwareness {
			return
		}
		logging.DefaultLogger().Warnf("send queue of %s overflowed, dropping connection", c.id)
		c.closeWS()
	}
}

// readLoop consumes inbound frames and hands them to the entry until the
// connection fails. Frames that do not decode are logged and dropped
// without tearing the connection down.
func (c *conn) readLoop(entry *documents.Entry) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.DefaultLogger().Infof("session %s: %v", c.id, err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logging.DefaultLogger().Warnf("frame from %s: %v", c.id, err)
			continue
		}
		entry.Handle(c, msg)
	}
}

// writePump serializes all writes to the socket, including pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.closeWS()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeWS()
				return
			}
		}
	}
}

// close releases the connection. The caller must have detached the
// session first so no Send races the done channel.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.closeWS()
}

func (c *conn) closeWS() {
	c.wsOnce.Do(func() {
		_ = c.ws.Close()
	})
}

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

// Package client provides the Go client of the sync server. One client
// holds one replica of one document, keeps it converged with the server
// over a WebSocket connection and exposes awareness of its peers.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	gotime "time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/pkg/document"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/pkg/document/time"
	"github.com/inkwell-team/inkwell/pkg/presence"
	"github.com/inkwell-team/inkwell/server/logging"
)

const writeWait = 10 * gotime.Second

// Client is a replica of one document, attached to a server. Local edits
// through Update are pushed immediately; updates from other replicas are
// applied as they arrive. All methods are safe for concurrent use.
type Client struct {
	conn    *websocket.Conn
	docKey  key.Key
	actor   time.ActorID
	logger  logging.Logger
	writeMu sync.Mutex

	mu    sync.Mutex
	doc   *document.Document
	table *presence.Table
	clock uint64

	synced     chan struct{}
	syncedOnce sync.Once
	done       chan struct{}
	closeOnce  sync.Once
	readWG     sync.WaitGroup
}

// Dial connects to the server at rpcAddr and attaches to the document of
// the given key. The address accepts ws, wss, http and https schemes;
// the HTTP schemes are rewritten, so httptest URLs work directly.
func Dial(ctx context.Context, rpcAddr string, docKey key.Key, opts ...Option) (*Client, error) {
	options := newOptions(opts...)

	u, err := docURL(rpcAddr, docKey, options.token)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}

	actor := time.NewActorID()
	c := &Client{
		conn:   conn,
		docKey: docKey,
		actor:  actor,
		logger: options.logger,
		doc:    document.New(actor),
		table:  presence.NewTable(),
		synced: make(chan struct{}),
		done:   make(chan struct{}),
	}

	c.doc.SubscribeUpdates(func(event document.UpdateEvent) {
		if event.Origin != document.OriginLocal {
			return
		}
		if err := c.writeFrame(protocol.NewSyncMessage(protocol.SyncUpdate, event.Delta)); err != nil {
			c.logger.Warnf("push update: %v", err)
		}
	})

	c.readWG.Add(1)
	go c.readLoop()

	return c, nil
}

// ActorID returns the replica's actor ID.
func (c *Client) ActorID() time.ActorID {
	return c.actor
}

// Update executes the given updater against the document and pushes the
// produced operations to the server.
func (c *Client) Update(updater func(root *document.Root) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Update(updater)
}

// Content returns the visible text of the named container.
func (c *Client) Content(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.TextContent(name)
}

// VersionVector returns a copy of the replica's version vector.
func (c *Client) VersionVector() time.VersionVector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.VersionVector()
}

// Synced returns a channel closed when the first sync answer from the
// server has been applied, meaning this replica has seen the server's
// state at attach time.
func (c *Client) Synced() <-chan struct{} {
	return c.synced
}

// Presence announces this replica's awareness state to its peers. A nil
// data withdraws it.
func (c *Client) Presence(data []byte) error {
	c.mu.Lock()
	c.clock++
	update := presence.Update{Actor: c.actor, Clock: c.clock, Data: data}
	c.table.Apply([]presence.Update{update})
	c.mu.Unlock()

	payload, err := presence.Encode([]presence.Update{update})
	if err != nil {
		return err
	}
	return c.writeFrame(protocol.NewAwarenessMessage(payload))
}

// PeerPresence returns the known awareness data per actor, including this
// replica's own.
func (c *Client) PeerPresence() map[time.ActorID][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.States()
}

// Close withdraws this replica's presence and closes the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if presenceErr := c.Presence(nil); presenceErr != nil {
			c.logger.Debugf("withdraw presence: %v", presenceErr)
		}

		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			gotime.Now().Add(writeWait),
		)
		c.writeMu.Unlock()

		close(c.done)
		err = c.conn.Close()
		c.readWG.Wait()
	})
	return err
}

func (c *Client) readLoop() {
	defer c.readWG.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warnf("connection to %s lost: %v", c.docKey, err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warnf("frame from server: %v", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeSync:
		c.handleSync(msg)
	case protocol.TypeAwareness:
		updates, err := presence.Decode(msg.Payload)
		if err != nil {
			c.logger.Warnf("presence from server: %v", err)
			return
		}
		c.mu.Lock()
		c.table.Apply(updates)
		c.mu.Unlock()
	}
}

func (c *Client) handleSync(msg protocol.Message) {
	switch msg.Sync {
	case protocol.SyncStep1:
		// The server opened the conversation: answer with what it is
		// missing and ask for what we are missing.
		vector, err := time.DecodeVersionVectorBytes(msg.Payload)
		if err != nil {
			c.logger.Warnf("vector from server: %v", err)
			return
		}

		c.mu.Lock()
		delta, deltaErr := c.doc.DeltaSince(vector)
		own, ownErr := c.doc.VersionVector().Encode()
		c.mu.Unlock()
		if deltaErr != nil || ownErr != nil {
			c.logger.Errorf("answer sync request: %v %v", deltaErr, ownErr)
			return
		}

		if err := c.writeFrame(protocol.NewSyncMessage(protocol.SyncStep2, delta)); err != nil {
			c.logger.Warnf("answer sync request: %v", err)
			return
		}
		if err := c.writeFrame(protocol.NewSyncMessage(protocol.SyncStep1, own)); err != nil {
			c.logger.Warnf("request sync: %v", err)
		}

	case protocol.SyncStep2:
		if len(msg.Payload) > 0 {
			c.applyRemote(msg.Payload)
		}
		c.syncedOnce.Do(func() {
			close(c.synced)
		})

	case protocol.SyncUpdate:
		if len(msg.Payload) > 0 {
			c.applyRemote(msg.Payload)
		}
	}
}

func (c *Client) applyRemote(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.doc.ApplyUpdate(payload, document.OriginRemote); err != nil {
		c.logger.Warnf("apply update: %v", err)
	}
}

func (c *Client) writeFrame(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(gotime.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// docURL builds the WebSocket URL of the document endpoint.
func docURL(rpcAddr string, docKey key.Key, token string) (string, error) {
	u, err := url.Parse(rpcAddr)
	if err != nil {
		return "", fmt.Errorf("parse address %s: %w", rpcAddr, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %s", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/docs/" + docKey.String()
	if token != "" {
		query := u.Query()
		query.Set("token", token)
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

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

// Package rpc is the WebSocket transport of the sync server. One
// connection attaches to exactly one document, named in the request
// path.
package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-team/inkwell/api/protocol"
	"github.com/inkwell-team/inkwell/pkg/document/content"
	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/server/backend"
	"github.com/inkwell-team/inkwell/server/documents"
	"github.com/inkwell-team/inkwell/server/logging"
	"github.com/inkwell-team/inkwell/server/packs"
)

// Server accepts WebSocket connections and binds each one to a document
// session. Key and token problems are reported as WebSocket close codes
// after the upgrade, so browser clients can read them.
type Server struct {
	conf       *Config
	be         *backend.Backend
	registry   *documents.Registry
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, registry *documents.Registry) *Server {
	s := &Server{
		conf:     conf,
		be:       be,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /docs/{key}", s.handleDoc)
	mux.HandleFunc("GET /docs/{key}/content", s.handleContent)
	s.httpServer = &http.Server{
		Addr:    conf.Addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the HTTP handler, used by in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server.
func (s *Server) Start() error {
	go func() {
		logging.DefaultLogger().Infof("serving RPC on %s", s.conf.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.DefaultLogger().Errorf("HTTP server ListenAndServe: %v", err)
		}
	}()
	return nil
}

// Shutdown stops accepting new connections. Open sessions are torn down
// by the registry flush that follows.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Errorf("HTTP server Shutdown: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server close: %v", err)
	}
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.DefaultLogger().Warnf("upgrade: %v", err)
		return
	}

	docKey, err := key.FromString(r.PathValue("key"))
	if err != nil {
		closeWith(ws, protocol.CloseInvalidKey, protocol.ReasonInvalidKey)
		return
	}

	if err := verifyToken(s.conf.AuthSecret, r.URL.Query().Get("token")); err != nil {
		logging.DefaultLogger().Warnf("reject %s: %v", docKey, err)
		closeWith(ws, protocol.CloseUnauthorized, protocol.ReasonUnauthorized)
		return
	}

	c := newConn(ws)
	entry := s.registry.Attach(docKey, c)
	go c.writePump()
	c.readLoop(entry)

	entry.Detach(c)
	c.close()
}

// handleContent serves the visible text of the document's last persisted
// state. Live edits reach it once they are flushed, which happens on
// every accepted update.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	docKey, err := key.FromString(r.PathValue("key"))
	if err != nil {
		http.Error(w, protocol.ReasonInvalidKey, http.StatusBadRequest)
		return
	}

	if err := verifyToken(s.conf.AuthSecret, r.URL.Query().Get("token")); err != nil {
		http.Error(w, protocol.ReasonUnauthorized, http.StatusUnauthorized)
		return
	}

	doc, err := packs.Load(r.Context(), s.be, docKey)
	if err != nil {
		logging.From(r.Context()).Errorf("content of %s: %v", docKey, err)
		http.Error(w, "load failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content.Extract(doc)))
}

// closeWith sends a close frame with the given application code and
// closes the socket.
func closeWith(ws *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		deadline,
	)
	_ = ws.Close()
}

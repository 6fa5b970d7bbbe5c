/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vogo/vogo/vlog"
	"github.com/vogo/vogo/vsync/vrun"
	"github.com/vogo/vshorturl/config"
	"github.com/vogo/vshorturl/cores"
	"github.com/vogo/vshorturl/router"
	"golang.org/x/net/netutil"
)

const shutdownTimeout = 30 * time.Second

// Server serves the url endpoints and persists the store periodically.
type Server struct {
	cfg     *config.Config
	store   *cores.URLStore
	backend cores.Backend
	runner  *vrun.Runner

	// saveMu orders the periodic save against the final flush.
	saveMu  sync.Mutex
	stopped bool

	Router     *router.Router
	httpServer *http.Server
}

// New creates a Server, the webpage is read from cfg.WebpagePath when present.
func New(cfg *config.Config, store *cores.URLStore, backend cores.Backend, cache cores.URLCache) *Server {
	webpage, err := os.ReadFile(cfg.WebpagePath)
	if err != nil {
		vlog.Warnf("load webpage %s failed, using the built-in page, err: %v", cfg.WebpagePath, err)
		webpage = nil
	}

	r := router.New()
	Routes(r, NewHandler(store, cache, webpage))

	return &Server{
		cfg:     cfg,
		store:   store,
		backend: backend,
		runner:  vrun.New(),
		Router:  r,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r,
			ReadTimeout:  cfg.TimeoutDuration(),
			WriteTimeout: cfg.TimeoutDuration(),
			IdleTimeout:  cfg.TimeoutDuration(),
		},
	}
}

// Run listens on the configured port and serves until a shutdown signal is
// received or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until a shutdown signal is received or ctx is cancelled,
// then flushes the store to the backend.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.runner.Interval(s.save, s.cfg.SaveIntervalDuration())
	vlog.Infof("server listen at %s", ln.Addr())

	var serveErr error
	select {
	case sig := <-sigChan:
		vlog.Infof("received signal %v, shutting down", sig)
	case <-ctx.Done():
		vlog.Infof("context done, shutting down")
	case err := <-errChan:
		serveErr = fmt.Errorf("server error: %w", err)
	}

	s.runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		vlog.Errorf("shutdown http server failed, err: %v", err)
	}

	if err := s.flush(shutdownCtx); err != nil {
		return errors.Join(serveErr, err)
	}

	return serveErr
}

// save is the periodic save job.
func (s *Server) save() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.stopped || !s.store.IsModified() || s.store.IsAsyncSaving() {
		return
	}

	if s.cfg.SaveAsync {
		if !s.store.SaveAsyncTo(s.backend) {
			vlog.Warnf("async save already running")
		}
		return
	}

	if err := s.store.SaveSyncTo(context.Background(), s.backend); err != nil {
		vlog.Errorf("save records failed, err: %v", err)
	}
}

// flush waits for a running async save and writes what it left unsaved.
// No periodic save starts once flush has begun.
func (s *Server) flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.stopped = true

	if err := s.store.Close(ctx); err != nil {
		return fmt.Errorf("wait async save: %w", err)
	}

	if !s.store.IsModified() {
		return nil
	}

	if err := s.store.SaveSyncTo(ctx, s.backend); err != nil {
		return fmt.Errorf("final save: %w", err)
	}

	return nil
}

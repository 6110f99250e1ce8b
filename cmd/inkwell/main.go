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

// Inkwell is the server of the Inkwell collaborative document system.
// It is configured through INKWELL_-prefixed environment variables.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkwell-team/inkwell/internal/version"
	"github.com/inkwell-team/inkwell/server"
	"github.com/inkwell-team/inkwell/server/logging"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "inkwell",
		Short:   "Inkwell synchronizes and persists collaborative documents",
		Version: fmt.Sprintf("%s (%s)", version.Version, version.BuildDate),
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := server.NewConfigFromEnv()
			if err != nil {
				return err
			}

			r, err := server.New(conf)
			if err != nil {
				return err
			}
			if err := r.Start(); err != nil {
				return err
			}

			waitForSignal(r)
			return nil
		},
		SilenceUsage: true,
	}
}

// waitForSignal blocks until an interrupt arrives, then shuts the server
// down. The first signal triggers a graceful shutdown with a full flush;
// a second one aborts.
func waitForSignal(r *server.Inkwell) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.DefaultLogger().Infof("caught %s, shutting down", sig)

	go func() {
		<-sigCh
		logging.DefaultLogger().Warn("second signal, aborting")
		os.Exit(1)
	}()

	if err := r.Shutdown(true); err != nil {
		logging.DefaultLogger().Errorf("shutdown: %v", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

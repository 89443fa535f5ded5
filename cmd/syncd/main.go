// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// syncd hosts a store of sync archives over WebDAV, so any WebDAV client
// can browse, read, and write them as ordinary files.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/webdav"

	"github.com/koh0920/syncarchive/pkg/config"
	"github.com/koh0920/syncarchive/pkg/store"
	"github.com/koh0920/syncarchive/pkg/vfs"
)

var (
	configPaths []string
	configEnv   string
)

var rootCmd = &cobra.Command{
	Use:   "syncd",
	Short: "Serve a store of sync archives over WebDAV",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPaths, configEnv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	s := store.New(cfg.Store.BaseDir)
	var handler http.Handler
	if cfg.Server.ReadOnly {
		logrus.Warn("syncd: read-only webdav mounts are not yet wired to a multi-archive store; set server.read_only=false")
	}
	fs := vfs.NewStoreFileSystem(s)
	handler = &webdav.Handler{
		Prefix:     cfg.Server.Prefix,
		FileSystem: fs,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logrus.WithError(err).WithField("method", r.Method).WithField("path", r.URL.Path).Warn("webdav request failed")
				return
			}
			logrus.WithField("method", r.Method).WithField("path", r.URL.Path).Debug("webdav request")
		},
	}

	logrus.WithField("addr", cfg.Server.ListenAddr).WithField("base_dir", cfg.Store.BaseDir).Info("syncd: listening")
	return http.ListenAndServe(cfg.Server.ListenAddr, handler)
}

func main() {
	rootCmd.Flags().StringSliceVar(&configPaths, "config-path", []string{".", "./config"}, "directories to search for syncd.yaml")
	rootCmd.Flags().StringVar(&configEnv, "env", "", "optional environment overlay (syncd.<env>.yaml)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/db"
	"github.com/MrCreosote/contigfilter/internal/gateway"
	"github.com/MrCreosote/contigfilter/internal/ops"
)

// deps builds the collaborators a command needs. The local database is
// opened on first use so that commands talking to the callback server never
// touch ~/.contigfilter/contigfilter.db.
type deps struct {
	baseDir string
	cfg     *config.Config
	logger  *slog.Logger

	db    *sql.DB
	local *gateway.LocalStore
}

func newDeps(baseDir string, cfg *config.Config, logger *slog.Logger) *deps {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &deps{baseDir: baseDir, cfg: cfg, logger: logger}
}

// importsDir is the directory import always accepts files from.
func (d *deps) importsDir() string {
	return filepath.Join(d.baseDir, db.ImportsDir)
}

// localStore opens the SQLite-backed store under baseDir.
func (d *deps) localStore() (*gateway.LocalStore, error) {
	if d.local != nil {
		return d.local, nil
	}
	database, err := db.Init(d.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, d.cfg)
	d.db = database
	d.local = gateway.NewLocalStore(database, d.baseDir)
	return d.local, nil
}

// gateways returns the assembly and report collaborators for the configured backend.
func (d *deps) gateways() (gateway.AssemblyGateway, gateway.ReportGateway, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if d.cfg.Backend == config.BackendLocal {
		store, err := d.localStore()
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	client := gateway.NewCallbackClient(d.cfg.CallbackURL, time.Duration(d.cfg.HTTPTimeoutSeconds)*time.Second)
	return client, client, nil
}

// pipeline wires the filter pipeline to the configured backend.
func (d *deps) pipeline() (*ops.Pipeline, error) {
	assemblies, reports, err := d.gateways()
	if err != nil {
		return nil, err
	}
	return ops.NewPipeline(d.cfg, assemblies, reports, d.logger), nil
}

// Close releases the local database if it was opened.
func (d *deps) Close() {
	if d.db != nil {
		_ = d.db.Close()
		d.db = nil
		d.local = nil
	}
}

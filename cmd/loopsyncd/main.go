// Command loopsyncd runs one side of a loopsync session against a console
// Host Adapter: an in-memory stand-in for the real IDE binding that logs the
// changes the peer applies to it. The binary reads no input, so it produces
// no local editor events of its own.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loopsync/core/internal/config"
	"github.com/loopsync/core/internal/core"
	"github.com/loopsync/core/internal/debugserver"
	"github.com/loopsync/core/internal/hostadapter"
	"github.com/loopsync/core/internal/pathnorm"
	"github.com/loopsync/core/internal/transport"
	"github.com/loopsync/core/internal/wire"
)

func main() {
	log := slog.Default()
	cfg := config.Get()

	if cfg.ProjectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Error("loopsyncd: getwd failed", "error", err)
			os.Exit(1)
		}
		cfg.ProjectPath = wd
	}
	if cfg.Role == "" {
		cfg.Role = transport.RoleScanner
	}

	family := pathnorm.FamilyPosix
	source := wire.SourceA
	if cfg.Role == transport.RoleListener {
		source = wire.SourceB
	}

	host := hostadapter.NewConsoleAdapter(log)
	defer host.Stop()

	c, err := core.New(core.Options{
		Role:          cfg.Role,
		ProjectPath:   cfg.ProjectPath,
		IDEType:       cfg.IDEType,
		IDEName:       cfg.IDEName,
		Source:        source,
		Family:        family,
		UseCustomPort: cfg.UseCustomPort,
		CustomPort:    cfg.CustomPort,
		AutoStartSync: cfg.AutoStartSync,
	}, host, log)
	if err != nil {
		log.Error("loopsyncd: init failed", "error", err)
		os.Exit(1)
	}

	c.Start()
	if !cfg.AutoStartSync {
		c.Enable()
	}

	debug := debugserver.New(cfg.DebugAddr, c, log)
	debug.Start()

	log.Info("loopsyncd: running", "role", cfg.Role, "projectPath", cfg.ProjectPath, "debugAddr", cfg.DebugAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("loopsyncd: shutting down")
	debug.Stop()
	c.Stop()
}

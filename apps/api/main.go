package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"

	"go.uber.org/dig"

	dig_container "github.com/trezcool/studyspace/apps/api/di/dig"
	echoapi "github.com/trezcool/studyspace/apps/api/echo"
	"github.com/trezcool/studyspace/core"
	"github.com/trezcool/studyspace/core/workspace"
	logsvc "github.com/trezcool/studyspace/services/logger"
)

type appParams struct {
	dig.In

	Conf          *core.Config
	Logger        *logsvc.RollbarLogger
	Cache         workspace.Cache
	StorageCloser io.Closer `name:"storageCloser"`
	Server        *echoapi.Server
}

func main() {
	c := dig_container.New()
	must(c.Invoke(run))
}

func run(p appParams) {
	conf, apiLogger, server := p.Conf, p.Logger, p.Server

	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	dig_container.LoadAssets(conf, apiLogger)

	defer func() { _ = apiLogger.Sync() }()
	defer func() {
		if err := p.StorageCloser.Close(); err != nil {
			apiLogger.Error(fmt.Sprintf("closing storage: %v", err), err)
		}
		if closer, ok := p.Cache.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				apiLogger.Error(fmt.Sprintf("closing cache: %v", err), err)
			}
		}
	}()
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests and workspace saves a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

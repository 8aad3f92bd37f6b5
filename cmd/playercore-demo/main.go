// Command playercore-demo wires the engine up with its observation plane
// and a demo client goroutine, for manual exercise during development.
//
// Grounded on the teacher's cmd/main.go (config load, server start) and
// ws/main.go (automaxprocs import + signal-driven shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/odin-media/playercore/internal/auth"
	"github.com/odin-media/playercore/internal/config"
	"github.com/odin-media/playercore/internal/logging"
	"github.com/odin-media/playercore/internal/metricsobs"
	"github.com/odin-media/playercore/pkg/command"
	"github.com/odin-media/playercore/pkg/debugserver"
	"github.com/odin-media/playercore/pkg/engine"
	"github.com/odin-media/playercore/pkg/event"
	"github.com/odin-media/playercore/pkg/eventsink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infof("GOMAXPROCS: %d (via automaxprocs)", runtime.GOMAXPROCS(0))

	metrics := metricsobs.NewRegistry()
	sampler := metricsobs.NewSystemSampler(metrics)
	stopSampler := make(chan struct{})
	go sampler.Run(stopSampler, 5*time.Second)
	defer close(stopSampler)

	eng, mainClient, status := engine.Create(engine.Config{
		RingCapacity:      cfg.Engine.RingCapacity,
		DispatchQueueSize: cfg.Engine.DispatchQueueSize,
		Logger:            logging.Printf{S: sugar},
	})
	if status != event.StatusOK {
		sugar.Fatalf("engine.Create failed: %v", status)
	}
	if status := eng.Initialize(mainClient); status != event.StatusOK {
		sugar.Fatalf("engine.Initialize failed: %v", status)
	}

	var sink *eventsink.Sink
	if cfg.EventSink.Enabled {
		sink, err = eventsink.Connect(eventsink.Config{
			URL:     cfg.EventSink.URL,
			Subject: cfg.EventSink.Subject,
		}, logging.Printf{S: sugar})
		if err != nil {
			sugar.Errorf("event sink disabled, connect failed: %v", err)
		} else {
			defer sink.Close()
		}
	}

	var debugSrv *debugserver.Server
	if cfg.DebugServer.Enabled {
		jwtManager := auth.NewJWTManager(cfg.DebugServer.JWTSecret, cfg.DebugServer.TokenTTL)
		debugSrv = debugserver.New(cfg.DebugServer.Addr, jwtManager, eng.Registry(), logging.Printf{S: sugar})
		go func() {
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				sugar.Errorf("debug server error: %v", err)
			}
		}()
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Endpoint, metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
				sugar.Errorf("metrics server error: %v", err)
			}
		}()
	}

	runDemoClient(eng, sugar)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	sugar.Infof("shutting down")
	eng.Shutdown()
	if debugSrv != nil {
		if err := debugSrv.Shutdown(); err != nil {
			sugar.Errorf("debug server shutdown: %v", err)
		}
	}
}

// runDemoClient spawns a goroutine that registers its own "demo" client,
// issues one async command through it and logs the reply, exercising the
// request-runner path end to end.
func runDemoClient(eng *engine.Engine, sugar interface{ Infof(string, ...any) }) {
	go func() {
		reg := eng.Registry()
		h, status := reg.NewClient("demo", "demo")
		if status != event.StatusOK {
			sugar.Infof("demo client: could not register: %v", status)
			return
		}
		defer h.Destroy()

		cmd, _ := command.FromLine("loadfile demo.mp4")
		replyID, status := eng.RunCommandAsync(h, cmd)
		if status != event.StatusOK {
			sugar.Infof("demo client: command submission failed: %v", status)
			return
		}
		rec := h.Wait(5 * time.Second)
		sugar.Infof("demo client: reply for %d: kind=%s in_reply_to=%d", replyID, rec.Kind, rec.InReplyTo)
	}()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather-forecast/config"
	v1 "weather-forecast/internal/controllers/http/v1"
	"weather-forecast/internal/repositories"
	"weather-forecast/internal/scheduler"
	"weather-forecast/internal/services/forecast"
	"weather-forecast/pkg/httpserver"
	"weather-forecast/pkg/observe"
)

// @title Weather Forecast API
// @version 1.0.0
// @description Five day / three hour weather forecast served from OpenWeather, normalized and resolved to the city's local time.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @tag.name Forecast
// @tag.description Forecast loading and views
func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cnf, err := config.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot load config:", err)
		os.Exit(1)
	}

	hook := observe.NewSentryHook(cnf.App.Env, cnf.App.Name, 0, cnf.Sentry.Debug, cnf.Sentry.DSN)
	l := observe.NewZapLogger(cnf.App.Name, os.Stdout, hook).WithEnv(cnf.App.Env)
	hook.SetLogger(l)
	if err := l.SetLevel(cnf.Log.Level); err != nil {
		l.Warning("invalid log level, keeping debug", map[string]any{"level": cnf.Log.Level, "err": err.Error()})
	}

	source, err := repositories.InitForecastSource(cnf, l)
	if err != nil {
		l.Error(err)
		os.Exit(1)
	}

	opts := []forecast.Option{forecast.WithLoadTimeout(cnf.LoadTimeout())}
	if cnf.Loader.SingleFlight {
		opts = append(opts, forecast.WithSingleFlight())
	}
	loader, err := forecast.NewLoader(source, cnf.Units(), l, opts...)
	if err != nil {
		l.Error(err)
		os.Exit(1)
	}

	loader.Subscribe(func(s forecast.State) {
		l.Debug("forecast state published", map[string]any{
			"status":     string(s.Status),
			"load_id":    s.LoadID,
			"generation": s.Generation,
			"seq":        s.Seq,
		})
	})

	if cnf.Loader.LoadOnStart {
		loader.LoadForecast(ctx, cnf.OpenWeather.DefaultQuery)
	}

	refresh := scheduler.NewRefreshScheduler(loader, cnf.Refresh.Cron, cnf.OpenWeather.DefaultQuery, l)
	if err := refresh.Start(); err != nil {
		l.Error(err)
		os.Exit(1)
	}

	app := httpserver.InitFiberServer(httpserver.Config{
		AppName:      cnf.App.Name,
		ReadTimeout:  time.Duration(cnf.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cnf.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cnf.Server.IdleTimeout) * time.Second,
		Ready: func() bool {
			// ready once the first load has resolved, or straight away without one
			return !cnf.Loader.LoadOnStart || loader.Current().Status.Terminal()
		},
	}, l)

	v1.NewRouter(
		app,
		loader,
		cnf,
		l,
	)

	go func() {
		if err := app.Listen(":" + cnf.Server.Port); err != nil {
			l.Fatal("cannot run the server", map[string]any{"err": err.Error()})
		}
	}()

	l.Info("application started successfully", map[string]any{
		"port":    cnf.Server.Port,
		"version": cnf.App.Version,
		"units":   string(cnf.Units()),
		"source":  source.Name(),
	})

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		l.Warning("stopping application services")
		signal.Stop(sigCh)
		close(sigCh)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		refresh.Stop(shutdownCtx)
		_ = app.ShutdownWithContext(shutdownCtx)
		hook.Flush()
		_ = l.Stop()
		cancel()
	}()

	select {
	case <-sigCh:
		fmt.Println("received shutdown signal")
	case <-ctx.Done():
		fmt.Println("context cancelled")
	}
}

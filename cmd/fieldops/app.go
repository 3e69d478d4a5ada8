package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/fieldapi"
	"github.com/fieldops/fieldops/internal/gateway"
	"github.com/fieldops/fieldops/internal/localstore"
	"github.com/fieldops/fieldops/internal/navigation"
	"github.com/fieldops/fieldops/internal/session"
)

var errLoginRequired = errors.New("not logged in, run: fieldops login")

// app is the application root: it owns the session store and hands it to
// the gate and the login flow.
type app struct {
	cfg    config.ClientConfig
	logger *slog.Logger
	gw     *gateway.Client
	api    *fieldapi.Client
	store  *session.Store
	gate   *navigation.Gate
	local  *localstore.Store

	stopObserve func()
}

func newApp(cfg config.ClientConfig, logger *slog.Logger) (*app, error) {
	local, err := localstore.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	saved, err := local.Load()
	if err != nil {
		logger.Warn("ignoring unreadable client state", slog.Any("error", err))
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:              cfg.BaseURL(),
		Timeout:              cfg.RequestTimeout,
		LegacyExpiryMessages: cfg.LegacyExpiryMessages,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}
	gw.SetToken(saved.Token)
	gw.SetCookies(saved.HTTPCookies())

	store := session.New(session.WithMinLoading(cfg.SplashDelay), session.WithProfileTimeout(cfg.RequestTimeout))
	a := &app{
		cfg:    cfg,
		logger: logger,
		gw:     gw,
		api:    fieldapi.New(gw),
		store:  store,
		local:  local,
	}
	a.gate = navigation.New(store, gw, logger)
	a.stopObserve = gw.Observe(a.onGatewayError)
	return a, nil
}

func (a *app) close() {
	a.stopObserve()
	a.gate.Close()
}

// onGatewayError drops saved credentials when the server says the session
// is gone. Network failures keep them so an outage does not log the user out.
func (a *app) onGatewayError(err *gateway.Error) {
	if err.Kind != gateway.KindSessionExpired {
		return
	}
	if clearErr := a.local.ClearSession(); clearErr != nil {
		a.logger.Warn("clear saved session", slog.Any("error", clearErr))
	}
}

// start runs the startup profile fetch.
func (a *app) start(ctx context.Context) {
	if a.gw.Token() == "" && len(a.gw.Cookies()) == 0 {
		a.store.Init(ctx, func(context.Context) (dto.User, error) {
			return dto.User{}, errLoginRequired
		})
		return
	}
	a.store.Init(ctx, a.api.Profile)
}

// enter starts the session and moves to route, failing when the route is
// not reachable with the current session.
func (a *app) enter(ctx context.Context, route navigation.Route) error {
	a.start(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.gate.Navigate(route); err != nil {
		if a.gate.Active() == navigation.SetAuthenticated {
			return fmt.Errorf("already logged in as %s", a.store.User().Username)
		}
		return errLoginRequired
	}
	return nil
}

func (a *app) saveSession() error {
	return a.local.SaveSession(a.gw.Token(), a.gw.Cookies())
}

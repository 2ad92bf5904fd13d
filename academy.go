// Package academy assembles the client SDK from configuration: the durable
// session store backend, the identity-provider strategy, the session store,
// the activity monitor, and the backend API client.
package academy

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/aiacademy/academy-client/apiclient"
	"github.com/aiacademy/academy-client/identity"
	"github.com/aiacademy/academy-client/identity/oidcprovider"
	"github.com/aiacademy/academy-client/internal/config"
	"github.com/aiacademy/academy-client/monitor"
	"github.com/aiacademy/academy-client/profiles"
	"github.com/aiacademy/academy-client/session"
	"github.com/aiacademy/academy-client/session/filestore"
	"github.com/aiacademy/academy-client/session/sqlitestore"
	"github.com/aiacademy/academy-client/token"
)

const sqliteFileName = "aiacademy.db"

// Client is the assembled SDK: the session lifecycle manager plus the
// authenticated API surface.
type Client struct {
	Store   *session.Store
	Monitor *monitor.Monitor
	API     *apiclient.Client

	// Activity is the event source hosts feed UI signals into.
	Activity *monitor.FanSource

	closers []func() error
}

// Options carry the pieces configuration alone cannot supply.
type Options struct {
	// Authorizer runs the user-facing step of the external sign-in flow.
	// Required when the configured provider is "oidc".
	Authorizer oidcprovider.Authorizer
}

// New wires up a Client from configuration.
func New(ctx context.Context, cfg config.Config, opts Options) (*Client, error) {
	c := &Client{Activity: monitor.NewFanSource()}

	repo, err := c.buildRepo(cfg)
	if err != nil {
		return nil, err
	}

	minter := token.NewMinter(token.WithValidity(cfg.GetTokenValidity()))

	profileRepo := &lazyProfileRepo{}
	provider, err := buildProvider(ctx, cfg, opts, profileRepo)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(repo, provider, minter)
	if err != nil {
		return nil, errors.Wrap(err, "[academy.New] NewStore")
	}
	c.Store = store

	api, err := apiclient.New(cfg.GetAPIBaseURL(), store)
	if err != nil {
		return nil, errors.Wrap(err, "[academy.New] apiclient.New")
	}
	c.API = api
	profileRepo.SetDelegate(apiclient.NewProfileStore(api))

	mon, err := monitor.New(store, c.Activity,
		monitor.WithIdleTimeout(cfg.GetIdleTimeout()),
		monitor.WithAutoRefresh(cfg.GetAutoRefresh()),
		monitor.WithRefreshThreshold(cfg.GetRefreshThreshold()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[academy.New] monitor.New")
	}
	c.Monitor = mon

	return c, nil
}

// Start restores the persisted session and, when it came back
// authenticated, activates the activity monitor.
func (c *Client) Start(ctx context.Context) session.State {
	state := c.Store.Restore()
	if state.IsAuthenticated {
		c.Monitor.Start(ctx)
	}
	return state
}

// Close stops the monitor and releases the storage backend.
func (c *Client) Close() error {
	c.Monitor.Stop()

	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) buildRepo(cfg config.Config) (session.Repo, error) {
	switch cfg.GetStorageBackend() {
	case config.StorageSQLite:
		store, err := sqlitestore.Open(filepath.Join(cfg.GetDataFolder(), sqliteFileName))
		if err != nil {
			return nil, errors.Wrap(err, "[academy.buildRepo] sqlitestore.Open")
		}
		c.closers = append(c.closers, store.Close)
		return store, nil

	case config.StorageFile:
		store, err := filestore.New(cfg.GetDataFolder())
		if err != nil {
			return nil, errors.Wrap(err, "[academy.buildRepo] filestore.New")
		}
		// Another process replacing the session file behaves like a
		// cross-tab storage event: re-run Restore.
		if err := store.Watch(func() {
			if c.Store == nil {
				return
			}
			log.Debug().Msg("session file changed externally, restoring")
			c.Store.Restore()
		}); err != nil {
			log.Warn().Err(err).Msg("session file watch unavailable")
		}
		c.closers = append(c.closers, store.Close)
		return store, nil

	default:
		return nil, errors.Errorf("[academy.buildRepo] unknown storage backend %q", cfg.GetStorageBackend())
	}
}

func buildProvider(ctx context.Context, cfg config.Config, opts Options, profileRepo profiles.Repo) (identity.Provider, error) {
	switch cfg.GetAuthProvider() {
	case config.ProviderOidc:
		if opts.Authorizer == nil {
			return nil, errors.New("[academy.buildProvider] authorizer is required for the oidc provider")
		}
		provider, err := oidcprovider.New(ctx, oidcprovider.Config{
			IssuerURL:          cfg.GetOidcIssuerURL(),
			ClientID:           cfg.GetOidcClientID(),
			ClientSecret:       cfg.GetOidcClientSecret(),
			RedirectURL:        cfg.GetOidcRedirectURL(),
			EndSessionEndpoint: cfg.GetOidcEndSessionURL(),
		}, opts.Authorizer, profileRepo)
		if err != nil {
			return nil, errors.Wrap(err, "[academy.buildProvider] oidcprovider.New")
		}
		return provider, nil

	case config.ProviderStatic:
		provider, err := identity.NewStaticProvider(identity.DemoUsers...)
		if err != nil {
			return nil, errors.Wrap(err, "[academy.buildProvider] NewStaticProvider")
		}
		return provider, nil

	default:
		return nil, errors.Errorf("[academy.buildProvider] unknown auth provider %q", cfg.GetAuthProvider())
	}
}

// lazyProfileRepo breaks the construction cycle between the OIDC provider
// (which upserts profiles) and the API client (which serves them but needs
// the session store the provider is part of).
type lazyProfileRepo struct {
	lock     sync.RWMutex
	delegate profiles.Repo
}

func (l *lazyProfileRepo) SetDelegate(repo profiles.Repo) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.delegate = repo
}

func (l *lazyProfileRepo) Upsert(ctx context.Context, profile *profiles.Profile) error {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if l.delegate == nil {
		return errors.New("[lazyProfileRepo.Upsert] profile repo not wired yet")
	}
	return l.delegate.Upsert(ctx, profile)
}

func (l *lazyProfileRepo) Get(ctx context.Context, uid string) (*profiles.Profile, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if l.delegate == nil {
		return nil, errors.New("[lazyProfileRepo.Get] profile repo not wired yet")
	}
	return l.delegate.Get(ctx, uid)
}

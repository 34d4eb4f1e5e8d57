// Package cli implements the maratonas command line client. Each invocation
// restores the persisted session, runs one command and exits.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/maratonas-femininas/maratonas/internal/apiclient"
	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/infra"
	"github.com/maratonas-femininas/maratonas/internal/logging"
	"github.com/maratonas-femininas/maratonas/internal/session"
)

// IO bundles the streams and the password prompt so tests can replace them.
type IO struct {
	In             io.Reader
	Out            io.Writer
	Err            io.Writer
	ReadPassword   func(prompt string) (string, error)
	ConfigPath     string
	ConfigOverride func(*config.Client)
}

// StdIO uses the process streams and a no-echo terminal prompt.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr, ReadPassword: promptPassword}
}

type app struct {
	io      IO
	cfg     config.Client
	logger  *slog.Logger
	api     *apiclient.Client
	manager *session.Manager
	cache   *redis.Client
}

// NewRootCommand builds the command tree.
func NewRootCommand(streams IO) *cobra.Command {
	a := &app{io: streams}
	var (
		configPath string
		apiURL     string
		logLevel   string
	)

	root := &cobra.Command{
		Use:           "maratonas",
		Short:         "Manage women's programming competitions from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = streams.ConfigPath
			}
			if path == "" {
				path = config.DefaultClientPath()
			}
			cfg, err := config.LoadClient(path)
			if err != nil {
				return err
			}
			if streams.ConfigOverride != nil {
				streams.ConfigOverride(&cfg)
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
			}
			a.cfg = cfg
			a.logger = logging.NewConsole(streams.Err, logLevel)
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/maratonas/config.toml)")
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL, overrides the config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "diagnostic log level")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.canCommand(),
		a.competitionsCommand(),
		a.teamsCommand(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	var storage session.Storage
	switch a.cfg.Storage {
	case config.StorageRedis:
		cache, err := infra.NewRedisClient(ctx, a.cfg.RedisURL, "maratonas-cli")
		if err != nil {
			return err
		}
		a.cache = cache
		storage = session.NewRedisStorage(a.cache)
	default:
		fs, err := session.NewFileStorage(a.cfg.SessionDir)
		if err != nil {
			return err
		}
		storage = fs
	}

	a.api = apiclient.New(a.cfg.APIURL, apiclient.WithTimeout(a.cfg.Timeout))
	a.manager = session.NewManager(session.NewStore(storage, a.logger), a.api, a.logger)
	if err := a.manager.Restore(ctx); err != nil {
		a.logger.Warn("could not restore session", slog.Any("error", err))
	}
	return nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.io.Out, format, args...)
}

// client returns an API client carrying the session's bearer token.
func (a *app) client() (*apiclient.Client, identity.Identity, error) {
	ident, ok := a.manager.Current()
	if !ok {
		return nil, identity.Identity{}, errNotLoggedIn
	}
	return a.api.WithToken(ident.Token), ident, nil
}

// Package cli implements the safeshift command line client.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"safeshift/internal/api"
	"safeshift/internal/platform/config"
	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/metrics"
	platformredis "safeshift/internal/platform/redis"
	"safeshift/internal/session"
	"safeshift/internal/session/store"
	dErrors "safeshift/pkg/domain-errors"
)

const teardownTimeout = 5 * time.Second

// annotationNoHeartbeat marks commands that replace or drop the login; they
// restore the stored session without reporting it active.
const annotationNoHeartbeat = "safeshift/no-heartbeat"

var noHeartbeat = map[string]string{annotationNoHeartbeat: "true"}

type globalOptions struct {
	configPath string
	profile    string
	apiURL     string
	logLevel   string
}

// app is the wiring shared by every command, built in PersistentPreRunE.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	sess     *session.Manager
	client   *api.Client
	redis    *platformredis.Client
	out      io.Writer
	errOut   io.Writer
}

// New returns the root command. Callers should use Execute, which also
// tears the session down when the command fails.
func New() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *app) {
	opts := &globalOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "safeshift",
		Short:         "Report workplace incidents and manage SafeShift from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default $HOME/.safeshift/config.yaml)")
	f.StringVar(&opts.profile, "profile", "", "session profile; one login per profile")
	f.StringVar(&opts.apiURL, "api-url", "", "SafeShift API base URL")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	addAuth(cmd, a)
	addReport(cmd, a)
	addDashboard(cmd, a)
	addEmployees(cmd, a)
	addActivity(cmd, a)
	addDepartments(cmd, a)
	addTasks(cmd, a)
	addWellness(cmd, a)
	addWatch(cmd, a)
	return cmd, a
}

func (a *app) setup(cmd *cobra.Command, opts *globalOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.profile != "" {
		cfg.Profile = opts.profile
	}
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	a.logger = logger.NewWithWriter(a.errOut, cfg.LogLevel, cfg.LogFormat)
	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	ctx := cmd.Context()
	st, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	a.sess = session.New(st,
		session.WithLogger(a.logger),
		session.WithMetrics(a.metrics),
		session.WithHeartbeatInterval(cfg.HeartbeatInterval),
		session.WithExpiryHook(func(context.Context) {
			_, _ = color.New(color.FgRed, color.Bold).Fprintln(a.errOut, "Your session has expired. Please run `safeshift login` again.")
		}),
	)
	a.client, err = api.New(cfg.APIBaseURL, a.sess,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	if cmd.Annotations[annotationNoHeartbeat] == "true" {
		return a.sess.Restore(ctx)
	}
	return a.sess.Init(ctx)
}

func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionStore {
	case config.SessionStoreMemory:
		return store.NewInMemory(), nil
	case config.SessionStoreRedis:
		client, err := platformredis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "session store unavailable")
		}
		a.redis = client
		return store.NewRedis(client.Client, a.cfg.Profile, store.WithTTL(a.cfg.SessionTTL)), nil
	default:
		return store.NewDisk(a.cfg.SessionDir, a.cfg.Profile, a.cfg.SessionTTL), nil
	}
}

// close stops the heartbeat, keeping the stored login for the next command.
func (a *app) close() error {
	if a.sess == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	err := a.sess.Teardown(ctx)
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.redis = nil
	}
	return err
}

// currentUser returns the signed-in user or a hint to log in.
func (a *app) currentUser() (session.User, error) {
	u, ok := a.sess.User()
	if !ok {
		return session.User{}, dErrors.New(dErrors.CodeUnauthorized, "not logged in; run `safeshift login`")
	}
	return u, nil
}

// Execute runs the root command and renders errors by code.
func Execute(ctx context.Context) int {
	cmd, a := newRoot()
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeSessionExpired:
		// the expiry hook already told the user
		return
	case dErrors.CodeNetwork, dErrors.CodeAPI:
		_, _ = red.Fprintf(w, "Error: %v\n", err)
		_, _ = fmt.Fprintln(w, "This looks temporary; try again.")
	default:
		_, _ = red.Fprintf(w, "Error: %v\n", err)
	}
}

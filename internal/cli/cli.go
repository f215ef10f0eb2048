// Package cli implements the timeline command: paginate a user, search or
// notifications timeline and print one record per tweet, or watch sources and
// print new tweets as they appear.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	timeline "github.com/anatolykoptev/go-timeline"
	"github.com/anatolykoptev/go-timeline/metrics"
	"github.com/anatolykoptev/go-timeline/snowflake"
)

var configFile string

// BuildCLI assembles the root command.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "timeline",
		Short:         "Paginate Twitter timelines through the web app's REST API",
		Version:       "0.3.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (YAML)")

	rootCmd.AddCommand(buildUserCommand())
	rootCmd.AddCommand(buildSearchCommand())
	rootCmd.AddCommand(buildNotificationsCommand())
	rootCmd.AddCommand(buildWatchCommand())
	rootCmd.AddCommand(buildIDCommand())

	return rootCmd
}

// walkFlags are shared by the paginating commands.
type walkFlags struct {
	maxID   string
	maxTime string
	limit   int
}

func (f *walkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.maxID, "max-id", "", "start at or below this tweet id")
	cmd.Flags().StringVar(&f.maxTime, "max-time", "", "start at or before this time (RFC 3339)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 100, "stop after this many tweets (0 = all)")
}

func (f *walkFlags) options() (timeline.SessionOptions, error) {
	opts := timeline.SessionOptions{MaxID: f.maxID}
	if f.maxTime != "" {
		t, err := time.Parse(time.RFC3339, f.maxTime)
		if err != nil {
			return opts, fmt.Errorf("--max-time: %w", err)
		}
		opts.MaxTime = t
	}
	return opts, nil
}

func buildUserCommand() *cobra.Command {
	var wf walkFlags
	var userID string

	cmd := &cobra.Command{
		Use:   "user HANDLE",
		Short: "Walk a user's tweets and retweets, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := wf.options()
			if err != nil {
				return err
			}
			return runWalk(cmd.OutOrStdout(), wf.limit, func(c *timeline.Client) (*timeline.Session, error) {
				s, err := timeline.NewUserSession(c, timeline.UserSessionOptions{
					UserID:  userID,
					Handle:  args[0],
					MaxID:   opts.MaxID,
					MaxTime: opts.MaxTime,
				})
				if err != nil {
					return nil, err
				}
				return &s.Session, nil
			})
		},
	}
	wf.register(cmd)
	cmd.Flags().StringVar(&userID, "user-id", "", "numeric user id for the direct endpoint")
	return cmd
}

func buildSearchCommand() *cobra.Command {
	var wf walkFlags
	var filter timeline.MediaFilter

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Walk search results, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := wf.options()
			if err != nil {
				return err
			}
			filter.UseMediaFilter = filter.Image || filter.GIF || filter.Video || filter.NoMedia
			return runWalk(cmd.OutOrStdout(), wf.limit, func(c *timeline.Client) (*timeline.Session, error) {
				s, err := timeline.NewSearchSession(c, timeline.SearchSessionOptions{
					Query:   args[0],
					Filter:  filter,
					MaxID:   opts.MaxID,
					MaxTime: opts.MaxTime,
				})
				if err != nil {
					return nil, err
				}
				slog.Info("search query", slog.String("query", s.QueryBase()))
				return &s.Session, nil
			})
		},
	}
	wf.register(cmd)
	cmd.Flags().BoolVar(&filter.Image, "images", false, "only tweets with images")
	cmd.Flags().BoolVar(&filter.GIF, "gifs", false, "only tweets with animated GIFs")
	cmd.Flags().BoolVar(&filter.Video, "videos", false, "only tweets with videos")
	cmd.Flags().BoolVar(&filter.NoMedia, "any-media", false, "strip media operators from the query and keep every tweet")
	return cmd
}

func buildNotificationsCommand() *cobra.Command {
	var wf walkFlags

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Walk the logged-in account's notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := wf.options()
			if err != nil {
				return err
			}
			return runWalk(cmd.OutOrStdout(), wf.limit, func(c *timeline.Client) (*timeline.Session, error) {
				s, err := timeline.NewNotificationsSession(c, opts)
				if err != nil {
					return nil, err
				}
				return &s.Session, nil
			})
		},
	}
	wf.register(cmd)
	return cmd
}

func buildWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the sources in the watch section and print new tweets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout())
		},
	}
}

func buildIDCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "id [ID]",
		Short: "Convert between tweet ids and timestamps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--time: %w", err)
				}
				id, ok := snowflake.FromTime(t)
				if !ok {
					return fmt.Errorf("%s predates tweet ids", at)
				}
				_, err = fmt.Fprintln(out, id)
				return err
			}
			if len(args) == 0 {
				return errors.New("give an id or --time")
			}
			t, err := snowflake.ToTime(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, t.Format(time.RFC3339Nano))
			return err
		},
	}
	cmd.Flags().StringVar(&at, "time", "", "print the smallest id minted at this time (RFC 3339)")
	return cmd
}

// app is what every network command needs.
type app struct {
	cfg       *Config
	client    *timeline.Client
	collector *metrics.Collector
}

func newApp() (*app, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg)

	collector, err := metrics.NewCollector()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	bridge, err := timeline.NewStealthBridge(timeline.StealthOptions{Proxy: cfg.Proxy.URL, Jitter: cfg.Proxy.Jitter})
	if err != nil {
		return nil, err
	}
	client, err := timeline.NewClient(timeline.ClientConfig{
		Bridge:          bridge,
		Context:         cfg.sessionContext(),
		KeepRaw:         cfg.Client.KeepRaw,
		MaxCooldownWait: cfg.Client.MaxCooldownWait,
		MetricsHook:     collector.Hook,
		WaitHook:        collector.WaitHook,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, client: client, collector: collector}, nil
}

// serveMetrics runs the /metrics endpoint until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.collector.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("starting metrics server", slog.String("addr", a.cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", slog.Any("error", err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runWalk(out io.Writer, limit int, open func(*timeline.Client) (*timeline.Session, error)) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	a.serveMetrics(ctx)

	s, err := open(a.client)
	if err != nil {
		return err
	}
	enc, err := newEncoder(out, a.cfg.Output.Format)
	if err != nil {
		return err
	}
	defer enc.Close()

	n := 0
	source := string(s.Kind())
	for t := range s.All(ctx) {
		if err := enc.Encode(t); err != nil {
			return err
		}
		a.collector.RecordTweet(source)
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	slog.Info("walk finished",
		slog.String("kind", source),
		slog.Int("tweets", n),
		slog.String("status", string(s.Status())),
		slog.String("cursor", s.Cursor()))
	if s.Status() == timeline.StatusError {
		return s.Err()
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// watchSources turns the watch section into sources.
func watchSources(cfg *Config) []timeline.Source {
	var sources []timeline.Source
	for _, h := range cfg.Watch.Users {
		sources = append(sources, timeline.UserSource{Handle: h})
	}
	for _, q := range cfg.Watch.Searches {
		sources = append(sources, timeline.SearchSource{Query: q})
	}
	if cfg.Watch.Notifications {
		sources = append(sources, timeline.NotificationsSource{})
	}
	return sources
}

func runWatch(out io.Writer) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	a.serveMetrics(ctx)

	enc, err := newEncoder(out, a.cfg.Output.Format)
	if err != nil {
		return err
	}
	defer enc.Close()

	sources := watchSources(a.cfg)
	w, err := timeline.NewWatcher(timeline.WatcherConfig{
		Client:   a.client,
		Sources:  sources,
		Interval: a.cfg.Watch.Interval,
		Backfill: a.cfg.Watch.Backfill,
		Handler: func(_ context.Context, source string, t *timeline.Tweet) error {
			a.collector.RecordTweet(source)
			return enc.Encode(t)
		},
	})
	if err != nil {
		return err
	}
	slog.Info("watching", slog.Int("sources", len(sources)), slog.Duration("interval", a.cfg.Watch.Interval))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

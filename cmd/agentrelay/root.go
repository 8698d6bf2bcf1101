package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/agentrelay"
	"github.com/hupe1980/agentrelay/callback"
	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/session"
)

const envPrefix = "AGENTRELAY"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "agentrelay",
		Short:        "Run multi-agent conversations with handoffs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "agentrelay.yaml", "Path to the agent configuration file")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.Bool("trace-events", false, "Log every lifecycle event")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newAgentsCmd(v),
		newRunCmd(v),
		newChatCmd(v),
	)

	return root
}

// app bundles what the subcommands share.
type app struct {
	relay  *agentrelay.Relay
	logger logging.Logger
	close  func()
}

func newApp(ctx context.Context, v *viper.Viper, store core.SessionStore) (*app, error) {
	level, err := logging.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	zl, err := logging.NewZapLogger(level, v.GetString("log-format"))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger := logging.NewZapAdapter(zl)

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	built, err := cfg.Build(ctx, builtinTools())
	if err != nil {
		return nil, err
	}

	ro := runner.Options{MaxHandoffs: 5, MaxModelCalls: 50, HandoffInput: runner.HandoffInputNone}
	built.RunnerOptions(&ro)

	relay := agentrelay.New(func(o *agentrelay.Options) {
		o.Models = built.Models
		o.Logger = logger
		o.MaxHandoffs = ro.MaxHandoffs
		o.MaxModelCalls = ro.MaxModelCalls
		o.HandoffInput = ro.HandoffInput
		o.DefaultAgent = ro.DefaultAgent

		if store != nil {
			o.Sessions = store
		}
	})

	if err := relay.Register(built.Agents...); err != nil {
		return nil, err
	}

	if v.GetBool("trace-events") {
		relay.Callbacks().RegisterAll(callback.NewLoggingHandler(logger))
	}

	return &app{
		relay:  relay,
		logger: logger,
		close:  func() { _ = zl.Sync() },
	}, nil
}

// openStore returns the session store selected by --store and a function
// releasing its connections.
func openStore(v *viper.Viper) (core.SessionStore, func(), error) {
	switch kind := v.GetString("store"); kind {
	case "", "memory":
		return session.NewInMemoryStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
		})

		store := session.NewRedisStore(client, func(o *session.RedisStoreOptions) {
			if ttl := v.GetDuration("session-ttl"); ttl > 0 {
				o.TTL = ttl
			}
		})

		return store, func() { _ = client.Close() }, nil
	case "sqlite", "postgres":
		db, err := session.OpenSQL(kind, v.GetString("dsn"))
		if err != nil {
			return nil, nil, err
		}

		store, err := session.NewSQLStore(db)
		if err != nil {
			return nil, nil, err
		}

		return store, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}
}

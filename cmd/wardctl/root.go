package main

import (
	"encoding/json"
	"fmt"
	"io"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	redisURL   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "wardctl",
		Short: "Inspect and manage scoped tokens",
		Long: `wardctl issues, checks, refreshes and revokes scoped tokens stored in Redis.

Scopes come from the config file. A scope named on the command line that the
file does not declare is registered with default lifetimes.

Examples:
  wardctl --redis-url redis://localhost:6379/2 issue user 42 --refresh
  wardctl check user 42 <access-token>
  wardctl ttl user 42 <access-token> --set 1h
  wardctl bench --miniredis`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.redisURL, "redis-url", "", "Redis URL (overrides config and REDIS_URL)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newScopesCmd(flags))
	root.AddCommand(newIssueCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newRefreshCmd(flags))
	root.AddCommand(newRevokeCmd(flags))
	root.AddCommand(newTTLCmd(flags))
	root.AddCommand(newBenchCmd(flags))

	return root
}

// session is an engine opened from the global flags together with the
// resources the command must release.
type session struct {
	engine *goWarden.Engine
	logger *goWarden.Logger
	file   goWarden.FileConfig
}

func (s *session) Close() {
	if s.engine != nil {
		_ = s.engine.Close()
	}
	_ = s.logger.Close()
}

func (f *globalFlags) load() (goWarden.FileConfig, error) {
	fc := goWarden.FileConfig{Config: goWarden.DefaultConfig()}
	fc.Log.Format = "console"
	if f.configFile != "" {
		loaded, err := goWarden.LoadConfigFile(f.configFile)
		if err != nil {
			return goWarden.FileConfig{}, err
		}
		fc = loaded
	}
	if f.redisURL != "" {
		fc.Store.URL = f.redisURL
	}
	if f.logLevel != "" {
		fc.Log.Level = f.logLevel
	}
	return fc, nil
}

func (f *globalFlags) open(stderr io.Writer) (*session, error) {
	fc, err := f.load()
	if err != nil {
		return nil, err
	}
	return openSession(fc, stderr)
}

func openSession(fc goWarden.FileConfig, stderr io.Writer) (*session, error) {
	logger, err := goWarden.NewLogger(fc.Log, stderr)
	if err != nil {
		return nil, err
	}

	registry := goWarden.NewRegistry(logger.Logger)
	if _, err := fc.RegisterScopes(registry); err != nil {
		_ = logger.Close()
		return nil, err
	}

	engine, err := goWarden.New().
		WithConfig(fc.Config).
		WithRegistry(registry).
		WithLogger(logger.Logger).
		Build()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &session{engine: engine, logger: logger, file: fc}, nil
}

// scope returns the named scope, registering it with defaults when the
// config does not declare it.
func (s *session) scope(name string) (*goWarden.Scope, error) {
	if scope, ok := s.engine.Registry().Find(name); ok {
		return scope, nil
	}
	s.logger.Debug().Str("scope", name).Msg("scope not configured, using defaults")
	return s.engine.Register(name, goWarden.ScopeConfig{})
}

func (s *session) authentication(scopeName string, creds goWarden.StaticCredentials) (*goWarden.Authentication, error) {
	scope, err := s.scope(scopeName)
	if err != nil {
		return nil, err
	}
	return s.engine.NewAuthentication(scope, creds), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"time"

	goWarden "github.com/MrEthical07/goWarden"
	"github.com/spf13/cobra"
)

type checkResult struct {
	Scope         string `json:"scope"`
	ID            string `json:"uid"`
	Authenticated bool   `json:"authenticated"`
	Value         string `json:"value,omitempty"`
	TTL           string `json:"ttl,omitempty"`
}

func newIssueCmd(flags *globalFlags) *cobra.Command {
	var withRefresh bool

	cmd := &cobra.Command{
		Use:   "issue <scope> <id>",
		Short: "Mint an access token, and optionally a refresh token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			scope, err := s.scope(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if withRefresh {
				pair, err := s.engine.IssueTokens(ctx, scope, args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), pair)
			}

			access, err := s.engine.IssueAccessToken(ctx, scope, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), goWarden.TokenPair{ID: args[1], AccessToken: access})
		},
	}
	cmd.Flags().BoolVar(&withRefresh, "refresh", false, "also mint a refresh token")
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <scope> <id> <access-token>",
		Short: "Report whether an access token is valid",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			auth, err := s.authentication(args[0], goWarden.StaticCredentials{ID: args[1], AccessToken: args[2]})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			res := checkResult{Scope: auth.Scope().Name(), ID: args[1]}
			ok, err := auth.Authenticated(ctx)
			if err != nil {
				return err
			}
			res.Authenticated = ok
			if ok {
				if res.Value, err = auth.ValueForAccessToken(ctx); err != nil {
					return err
				}
				ttl, err := auth.TTLForAccessToken(ctx)
				if err != nil && !errors.Is(err, goWarden.ErrAuthenticationFailed) {
					return err
				}
				if ttl > 0 {
					res.TTL = ttl.Round(time.Second).String()
				}
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newRefreshCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <scope> <id> <refresh-token>",
		Short: "Consume a refresh token and mint a new pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			auth, err := s.authentication(args[0], goWarden.StaticCredentials{ID: args[1], RefreshToken: args[2]})
			if err != nil {
				return err
			}

			pair, err := s.engine.Rotate(cmd.Context(), auth)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pair)
		},
	}
}

func newRevokeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <scope> <id> <access-token>",
		Short: "Sign out the session behind an access token",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			auth, err := s.authentication(args[0], goWarden.StaticCredentials{ID: args[1], AccessToken: args[2]})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ok, err := auth.Authenticated(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return goWarden.ErrAuthenticationFailed
			}
			if err := auth.SignOut(ctx); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"succ": true})
		},
	}
}

func newTTLCmd(flags *globalFlags) *cobra.Command {
	var set time.Duration

	cmd := &cobra.Command{
		Use:   "ttl <scope> <id> <access-token>",
		Short: "Show or change the remaining lifetime of an access token",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			auth, err := s.authentication(args[0], goWarden.StaticCredentials{ID: args[1], AccessToken: args[2]})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := auth.Authenticate(ctx); err != nil {
				return err
			}
			if cmd.Flags().Changed("set") {
				if err := auth.SetTTLForAccessToken(ctx, set); err != nil {
					return err
				}
			}

			ttl, err := auth.TTLForAccessToken(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ttl.Round(time.Second))
			return err
		},
	}
	cmd.Flags().DurationVar(&set, "set", 0, "new lifetime, e.g. 1h")
	return cmd
}

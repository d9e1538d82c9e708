package main

import (
	goWarden "github.com/MrEthical07/goWarden"
	"github.com/spf13/cobra"
)

type scopeView struct {
	Name            string `json:"name"`
	HeaderPrefix    string `json:"header_prefix"`
	AccessTokenTTL  string `json:"access_token_ttl"`
	RefreshTokenTTL string `json:"refresh_token_ttl,omitempty"`
}

func newScopesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the scopes declared in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := flags.load()
			if err != nil {
				return err
			}
			// Listing needs no store, so the registry is built without an engine.
			logger, err := goWarden.NewLogger(fc.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logger.Close()

			registry := goWarden.NewRegistry(logger.Logger)
			if _, err := fc.RegisterScopes(registry); err != nil {
				return err
			}

			views := make([]scopeView, 0, registry.Len())
			for _, name := range registry.Names() {
				scope, _ := registry.Find(name)
				v := scopeView{
					Name:           scope.Name(),
					HeaderPrefix:   scope.HeaderPrefix(),
					AccessTokenTTL: scope.AccessTokenTTL().String(),
				}
				if !scope.RefreshTokenDisabled() {
					v.RefreshTokenTTL = scope.RefreshTokenTTL().String()
				}
				views = append(views, v)
			}
			return printJSON(cmd.OutOrStdout(), views)
		},
	}
}

// Package cli implements crmctl, the operator command line.
package cli

import (
	"context"
	"fmt"

	"github.com/hongyu-crm/crm-backend/config"
	"github.com/hongyu-crm/crm-backend/internal/bootstrap"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/spf13/cobra"
)

// StoreOpener returns the record store to operate on and a close func.
type StoreOpener func(ctx context.Context, cfg *config.Config) (repository.Store, func() error, error)

type Options struct {
	Version string
	// LoadConfig defaults to config.Load.
	LoadConfig func() (*config.Config, error)
	// OpenStore defaults to the store selected by STORE_DRIVER.
	OpenStore StoreOpener
	Clock     status.Clock
}

type runtime struct {
	opts  Options
	cfg   *config.Config
	store repository.Store
	close func() error
}

func NewRootCmd(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.OpenStore == nil {
		opts.OpenStore = func(ctx context.Context, cfg *config.Config) (repository.Store, func() error, error) {
			s, _, closeFn, err := bootstrap.OpenStore(ctx, cfg)
			return s, closeFn, err
		}
	}
	if opts.Clock == nil {
		opts.Clock = status.SystemClock{}
	}

	rt := &runtime{opts: opts}
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operator tools for the CRM backend",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.open(cmd.Context())
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return rt.shutdown()
		},
	}

	root.AddCommand(newSeedCmd(rt))
	root.AddCommand(newUsersCmd(rt))
	root.AddCommand(newFollowupsCmd(rt))
	return root
}

func (rt *runtime) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := rt.opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, closeFn, err := rt.opts.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	rt.cfg, rt.store, rt.close = cfg, store, closeFn
	return nil
}

func (rt *runtime) shutdown() error {
	if rt.close == nil {
		return nil
	}
	err := rt.close()
	rt.close = nil
	return err
}

// operator is the account the CLI acts as.
func (rt *runtime) operator(ctx context.Context) (domain.User, error) {
	u, err := rt.store.GetUser(ctx, domain.SeedSuperAdminID)
	if err != nil {
		return domain.User{}, fmt.Errorf("seed super admin missing, run `crmctl seed` first: %w", err)
	}
	return u, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/config"
	"github.com/andrewpaige1/stakemap/handlers"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/service"
	"github.com/andrewpaige1/stakemap/store"
)

// app is the wired dependency graph shared by the commands.
type app struct {
	env   *config.Environment
	log   zerolog.Logger
	db    *store.GormStore
	maps  *service.MapService
	data  *service.DataService
	admin *service.AdminService
}

func loadEnv() (*config.Environment, error) {
	env, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return env, nil
}

func openApp() (*app, error) {
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(env, os.Stderr)

	db, err := config.Connect(env.DBDriver, env.DBURL)
	if err != nil {
		return nil, err
	}
	gs := store.NewGormStore(db)
	if err := gs.Migrate(); err != nil {
		_ = gs.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var guests store.Store
	if env.GuestModeEnabled {
		fs, err := store.NewFileStore(env.GuestDataDir)
		if err != nil {
			_ = gs.Close()
			return nil, err
		}
		guests = fs
	}

	maps := service.NewMapService(gs, guests, gs, env.MaxStakeholders, logger)
	return &app{
		env:   env,
		log:   logger,
		db:    gs,
		maps:  maps,
		data:  service.NewDataService(maps),
		admin: service.NewAdminService(gs, gs),
	}, nil
}

func tokenConfig(env *config.Environment) auth.TokenConfig {
	return auth.TokenConfig{Secret: env.JWTSecret, Issuer: env.JWTIssuer, Audience: env.JWTAudience}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stakemap",
		Short:        "Stakeholder mapping API server and tools",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newExportCmd(),
		newImportCmd(),
		newTokenCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.db.Close()

			v, err := auth.NewValidator(tokenConfig(a.env))
			if err != nil {
				return err
			}
			h := handlers.New(a.maps, a.data, a.admin, a.db, handlers.CookieOptions{
				Domain: a.env.CookieDomain,
				Secure: a.env.CookieSecure(),
			})
			srv := &http.Server{
				Addr: a.env.Addr(),
				Handler: handlers.NewRouter(h, handlers.RouterConfig{
					Validator:      v,
					GuestMode:      a.env.GuestModeEnabled,
					AllowedOrigins: a.env.AllowedOrigins,
					Logger:         a.log,
				}),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", srv.Addr).Bool("guest_mode", a.env.GuestModeEnabled).Msg("server starting")
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.db.Close()
			a.log.Info().Str("driver", a.env.DBDriver).Msg("schema is up to date")
			return nil
		},
	}
}

// ownerFlags selects whose data a data command acts on.
type ownerFlags struct {
	owner string
	guest bool
}

func (f *ownerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "account subject or guest id")
	cmd.Flags().BoolVar(&f.guest, "guest", false, "treat --owner as a guest id")
	_ = cmd.MarkFlagRequired("owner")
}

func (f *ownerFlags) principal() auth.Principal {
	return auth.Principal{ID: f.owner, Role: models.RoleUser, Guest: f.guest}
}

func newExportCmd() *cobra.Command {
	var (
		who    ownerFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's maps as JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := service.ParseFormat(format)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.db.Close()

			doc, err := a.data.Export(cmd.Context(), who.principal())
			if err != nil {
				return err
			}
			raw, err := service.EncodeExport(doc, f)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
			return os.WriteFile(out, raw, 0o644)
		},
	}
	who.register(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		who      ownerFlags
		strategy string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge an export document into an owner's maps",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := service.ParseMergeStrategy(strategy)
			if err != nil {
				return err
			}
			var raw []byte
			if file == "" || file == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read import document: %w", err)
			}
			doc, err := service.DecodeExport(raw)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.db.Close()

			report, err := a.data.Import(cmd.Context(), who.principal(), doc, st)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	who.register(cmd)
	cmd.Flags().StringVar(&strategy, "strategy", string(service.Newest), "keep-existing, overwrite or newest")
	cmd.Flags().StringVarP(&file, "file", "f", "", "export document (default stdin)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject  string
		nickname string
		role     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			tok, err := auth.CreateToken(tokenConfig(env), subject, nickname, models.ParseRole(role), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id carried in the sub claim")
	cmd.Flags().StringVar(&nickname, "nickname", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "user or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

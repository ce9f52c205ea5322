// Command console is the admin console for operators: it signs in, follows the admin's role and
// runs one console action against the live collections.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/console"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/application/uploads"
	"estate-backend/internal/authstate"
	"estate-backend/internal/authz"
	"estate-backend/internal/collections"
	"estate-backend/internal/config"
	"estate-backend/internal/constants"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/pkg/logger"
	"estate-backend/internal/platform"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

type options struct {
	email    string
	password string
	api      string
	timeout  time.Duration

	status   string
	query    string
	unviewed bool

	newEmail    string
	newPassword string
	firstName   string
	lastName    string
	role        string
}

func main() {
	var o options
	flag.StringVarP(&o.email, "email", "e", os.Getenv("CONSOLE_EMAIL"), "admin email")
	flag.StringVarP(&o.password, "password", "p", os.Getenv("CONSOLE_PASSWORD"), "admin password")
	flag.StringVar(&o.api, "api", "http://localhost:8080", "base URL of the API server (admin lifecycle routes)")
	flag.DurationVar(&o.timeout, "timeout", 10*time.Second, "how long to wait for the collections to load")
	flag.StringVar(&o.status, "status", "", "filter by status")
	flag.StringVarP(&o.query, "query", "q", "", "filter listings by text or numeric id")
	flag.BoolVar(&o.unviewed, "unviewed", false, "only unviewed records")
	flag.StringVar(&o.newEmail, "new-email", "", "create-admin: email")
	flag.StringVar(&o.newPassword, "new-password", "", "create-admin: password")
	flag.StringVar(&o.firstName, "first-name", "", "create-admin: first name")
	flag.StringVar(&o.lastName, "last-name", "", "create-admin: last name")
	flag.StringVar(&o.role, "role", constants.Viewer, "create-admin: role")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: console [flags] <command> [args]

commands:
  dashboard
  listings                      [--status S] [-q TEXT]
  listing-status ID STATUS
  delete-listing ID
  appointments                  [--status S] [--unviewed]
  appointment-status ID done|pending
  messages                      [--unviewed]
  message-viewed ID
  admins
  create-admin                  --new-email --new-password --first-name [--last-name] --role
  delete-admin UID
  change-role UID ROLE
  watch COLLECTION

flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, o, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		log.Error().Err(err).Msg("console")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, o options, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if o.email == "" || o.password == "" {
		return fmt.Errorf("--email and --password are required")
	}

	pc, err := platform.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pc.Close()

	client := identity.NewClient(pc.Auth)
	store := collections.NewStore(pc.Feed)
	defer store.Close()
	auth := authstate.New(client, store, authz.MustNew())
	auth.Start(ctx)
	defer auth.Close()

	if _, err := client.SignIn(ctx, o.email, o.password); err != nil {
		return err
	}
	if err := waitForRole(ctx, auth, o.timeout); err != nil {
		return err
	}

	ups := &uploads.Service{Store: pc.Storage}
	con := console.New(console.Deps{
		Store:        store,
		Listings:     &listings.Service{DB: pc.DB, Feed: pc.Feed, Images: ups},
		Uploads:      ups,
		Appointments: &appointments.Service{DB: pc.DB, Feed: pc.Feed},
		Messages:     &messages.Service{DB: pc.DB, Feed: pc.Feed},
		Tokens:       auth,
		APIBaseURL:   o.api,
	})
	defer con.Close()

	c := &cli{con: con, auth: auth, store: store, opts: o}
	return c.dispatch(ctx, args)
}

// waitForRole blocks until the session is known and its admin document has arrived.
func waitForRole(ctx context.Context, auth *authstate.Context, timeout time.Duration) error {
	deadline := time.After(timeout)
	select {
	case <-auth.Ready():
	case <-deadline:
		return fmt.Errorf("timed out waiting for sign-in")
	case <-ctx.Done():
		return ctx.Err()
	}
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if auth.State().Role != "" {
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline:
			return fmt.Errorf("signed in, but this account has no admin profile")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

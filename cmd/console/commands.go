package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/application/console"
	"estate-backend/internal/authstate"
	"estate-backend/internal/collections"
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"

	json "github.com/goccy/go-json"
)

type cli struct {
	con   *console.Console
	auth  *authstate.Context
	store *collections.Store
	opts  options
}

type command struct {
	args       int
	permission string
	run        func(ctx context.Context, args []string) error
}

func (c *cli) commands() map[string]command {
	return map[string]command{
		"dashboard": {0, constants.ViewDashboard, func(context.Context, []string) error {
			if err := c.waitLoaded(domain.CollectionListings, domain.CollectionAppointments, domain.CollectionMessages); err != nil {
				return err
			}
			stats, err := c.con.Dashboard.Stats()
			if err != nil {
				return err
			}
			return printJSON(stats)
		}},
		"listings": {0, constants.ViewListings, func(context.Context, []string) error {
			if err := c.waitLoaded(domain.CollectionListings); err != nil {
				return err
			}
			out, err := c.con.Listings.List(console.ListingFilter{Status: c.opts.status, Query: c.opts.query})
			if err != nil {
				return err
			}
			return printJSON(out)
		}},
		"listing-status": {2, constants.EditListing, func(ctx context.Context, a []string) error {
			return c.con.Listings.SetStatus(ctx, a[0], a[1])
		}},
		"delete-listing": {1, constants.DeleteListing, func(ctx context.Context, a []string) error {
			return c.con.Listings.Delete(ctx, a[0])
		}},
		"appointments": {0, constants.ViewAppointments, func(context.Context, []string) error {
			if err := c.waitLoaded(domain.CollectionAppointments); err != nil {
				return err
			}
			out, err := c.con.Appointments.List(console.AppointmentFilter{Status: c.opts.status, UnviewedOnly: c.opts.unviewed})
			if err != nil {
				return err
			}
			return printJSON(out)
		}},
		"appointment-status": {2, constants.UpdateAppointment, func(ctx context.Context, a []string) error {
			switch a[1] {
			case domain.AppointmentDone:
				return c.con.Appointments.MarkDone(ctx, a[0])
			case domain.AppointmentPending:
				return c.con.Appointments.MarkPending(ctx, a[0])
			}
			return errUsage
		}},
		"messages": {0, constants.ViewMessages, func(context.Context, []string) error {
			if err := c.waitLoaded(domain.CollectionMessages); err != nil {
				return err
			}
			out, err := c.con.Messages.List(c.opts.unviewed)
			if err != nil {
				return err
			}
			return printJSON(out)
		}},
		"message-viewed": {1, constants.UpdateMessage, func(ctx context.Context, a []string) error {
			return c.con.Messages.MarkViewed(ctx, a[0], true)
		}},
		"admins": {0, constants.ViewAdmins, func(context.Context, []string) error {
			if err := c.waitLoaded(domain.CollectionAdmins); err != nil {
				return err
			}
			out, err := c.con.Admins.List()
			if err != nil {
				return err
			}
			return printJSON(out)
		}},
		"create-admin": {0, constants.ManageAdmins, func(ctx context.Context, _ []string) error {
			uid, err := c.con.Admins.Create(ctx, admins.CreateInput{
				Email:     c.opts.newEmail,
				Password:  c.opts.newPassword,
				FirstName: c.opts.firstName,
				LastName:  c.opts.lastName,
				Role:      c.opts.role,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"uid": uid})
		}},
		"delete-admin": {1, constants.ManageAdmins, func(ctx context.Context, a []string) error {
			return c.con.Admins.Delete(ctx, a[0])
		}},
		"change-role": {2, constants.ManageAdmins, func(ctx context.Context, a []string) error {
			return c.con.Admins.ChangeRole(ctx, a[0], a[1])
		}},
		"watch": {1, "", c.watch},
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	cmd, ok := c.commands()[args[0]]
	if !ok || len(args)-1 != cmd.args {
		return errUsage
	}
	if cmd.permission != "" && !c.auth.HasPermission(cmd.permission) {
		return fmt.Errorf("role %q may not run %s", c.auth.State().Role, args[0])
	}
	return cmd.run(ctx, args[1:])
}

var watchPermission = map[string]string{
	domain.CollectionListings:     constants.ViewListings,
	domain.CollectionAppointments: constants.ViewAppointments,
	domain.CollectionMessages:     constants.ViewMessages,
	domain.CollectionAdmins:       constants.ViewAdmins,
}

// watch prints every snapshot of a collection until interrupted.
func (c *cli) watch(ctx context.Context, a []string) error {
	perm, ok := watchPermission[a[0]]
	if !ok {
		return fmt.Errorf("unknown collection %q", a[0])
	}
	if !c.auth.HasPermission(perm) {
		return fmt.Errorf("role %q may not watch %s", c.auth.State().Role, a[0])
	}
	sub, snap := c.store.Subscribe(a[0])
	defer sub.Close()
	for {
		if !snap.Loading {
			fmt.Fprintf(os.Stdout, "%s v%d: %d documents\n", snap.Collection, snap.Version, len(snap.Docs))
			if snap.Err != nil {
				return snap.Err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-sub.Events():
			if !ok {
				return nil
			}
			snap = s
		}
	}
}

// waitLoaded waits until each named collection has delivered its first snapshot.
func (c *cli) waitLoaded(names ...string) error {
	deadline := time.Now().Add(c.opts.timeout)
	for _, name := range names {
		for {
			snap, ok := c.store.Cached(name)
			if ok && !snap.Loading {
				if snap.Err != nil {
					return snap.Err
				}
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out loading %s", name)
			}
			time.Sleep(25 * time.Millisecond)
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-invitations/internal/calendar"
	"github.com/prohmpiriya/event-invitations/internal/domain"
	"github.com/prohmpiriya/event-invitations/internal/dto"
	"github.com/prohmpiriya/event-invitations/internal/repository"
	"github.com/prohmpiriya/event-invitations/internal/service"
	"github.com/prohmpiriya/event-invitations/pkg/config"
	"github.com/prohmpiriya/event-invitations/pkg/database"
	"github.com/prohmpiriya/event-invitations/pkg/logger"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "invitectl",
		Usage: "Inspect events and invitations stored by the invitation service.",
		Commands: []*cli.Command{
			listCommand(),
			showCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("invitectl failed", zap.Error(err))
		os.Exit(1)
	}
}

type session struct {
	cfg   *config.Config
	mongo *database.MongoDB
	repo  *repository.MongoEventRepository
}

func open(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.NewMongo(ctx, &database.MongoConfig{
		URI:            cfg.MongoDB.URI,
		Database:       cfg.MongoDB.Database,
		ConnectTimeout: cfg.MongoDB.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, mongo: db, repo: repository.NewMongoEventRepository(db.Database())}, nil
}

func (s *session) close(ctx context.Context) {
	_ = s.mongo.Close(ctx)
}

func (s *session) get(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %s: %w", id, domain.ErrEventNotFound)
	}
	return event, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List events, optionally filtered by organizer or invitee.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "organizer", Usage: "Only events organized by this email."},
			&cli.StringFlag{Name: "invitee", Usage: "Only events this email is invited to."},
			&cli.StringFlag{Name: "sort", Value: dto.SortByDate, Usage: "date or role (role needs --organizer or --invitee)."},
		},
		Action: func(c *cli.Context) error {
			s, err := open(c.Context)
			if err != nil {
				return err
			}
			defer s.close(c.Context)

			filter := domain.EventFilter{
				Organizer: domain.NormalizeEmail(c.String("organizer")),
				Invitee:   domain.NormalizeEmail(c.String("invitee")),
			}
			events, err := s.repo.List(c.Context, filter)
			if err != nil {
				return err
			}
			viewer := filter.Organizer
			if viewer == "" {
				viewer = filter.Invitee
			}
			loc := s.cfg.Events.Location()
			service.SortInvitations(events, viewer, c.String("sort"), loc)

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tORGANIZER\tSTARTS\tINVITEES\tPUBLIC")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n",
					e.ID, e.Name, e.OrganizerEmail, domain.FormatDisplay(e.StartAt(loc)), len(e.Invitees), e.IsPublic)
			}
			return w.Flush()
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one event with attendance as JSON.",
		ArgsUsage: "EVENT_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: invitectl show EVENT_ID", 2)
			}
			s, err := open(c.Context)
			if err != nil {
				return err
			}
			defer s.close(c.Context)

			event, err := s.get(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			// render as the organizer so attendance is included
			resp := dto.NewEventResponse(event, event.OrganizerEmail, s.cfg.Events.Location())
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write an event as an iCalendar file.",
		ArgsUsage: "EVENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)."},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: invitectl export EVENT_ID [--out FILE]", 2)
			}
			s, err := open(c.Context)
			if err != nil {
				return err
			}
			defer s.close(c.Context)

			event, err := s.get(c.Context, c.Args().First())
			if err != nil {
				return err
			}

			out := c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			return calendar.NewEncoder(s.cfg.Events.Location()).Encode(out, event)
		},
	}
}

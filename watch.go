package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CrowderSoup/taskboard/client"
	"github.com/CrowderSoup/taskboard/logging"
	"github.com/CrowderSoup/taskboard/models"
)

var watchCmd = &cobra.Command{
	Use:   "watch <board-id>",
	Short: "Follow a board live",
	Long: `Connect to a server, open a board and print every change as it is
broadcast, keeping a local copy of the board's order in sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var boardID int64
		if _, err := fmt.Sscanf(args[0], "%d", &boardID); err != nil || boardID <= 0 {
			return fmt.Errorf("invalid board id %q", args[0])
		}
		server, _ := cmd.Flags().GetString("server")
		user, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")
		level, _ := cmd.Flags().GetString("log-level")

		log, err := logging.New(level, logging.FormatConsole, os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch(ctx, server, user, password, boardID, log)
	},
}

func init() {
	watchCmd.Flags().StringP("server", "s", "http://localhost:3001", "Server base URL")
	watchCmd.Flags().StringP("user", "u", "watcher", "Username for the session")
	watchCmd.Flags().StringP("password", "p", "", "Board password, if the board has one")
	watchCmd.Flags().String("log-level", "warn", "Log level")
	rootCmd.AddCommand(watchCmd)
}

var (
	eventColor   = color.New(color.FgCyan)
	removedColor = color.New(color.FgRed)
	stateColor   = color.New(color.FgYellow)
	listColor    = color.New(color.FgGreen, color.Bold)
	gray         = color.New(color.FgHiBlack)
)

func watch(ctx context.Context, server, user, password string, boardID int64, log zerolog.Logger) error {
	api := client.NewAPI(server)
	if err := api.Login(ctx, user); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	board, err := api.Board(ctx, boardID)
	if err != nil {
		return err
	}
	var boardToken string
	if board.HasPassword {
		if boardToken, err = api.Unlock(ctx, boardID, password); err != nil {
			return fmt.Errorf("unlock board: %w", err)
		}
	}

	view := client.NewBoardView(boardID)
	lists, err := api.Lists(ctx, boardID)
	if err != nil {
		return err
	}
	view.LoadLists(lists)
	for _, l := range lists {
		cards, err := api.Cards(ctx, l.ID)
		if err != nil {
			return err
		}
		view.LoadCards(l.ID, cards)
	}

	var registry *client.Registry
	conn := client.NewConn(api.WebSocketURL(), api.Token, func(ev client.Event) {
		if err := view.Apply(ev); err != nil {
			log.Warn().Err(err).Msg("apply event")
			return
		}
		eventColor.Printf("%-18s", ev.Kind)
		gray.Printf(" parent=%d\n", ev.ParentID)

		// keep list channels in step with the board's lists
		switch ev.Kind {
		case models.ListAdded:
			var l models.TaskList
			if err := ev.Decode(&l); err == nil {
				_ = registry.OpenList(l.ID, boardToken)
			}
		case models.ListRemoved:
			var m models.Marker
			if err := ev.Decode(&m); err == nil {
				_ = registry.CloseList(m.ID)
			}
		}
		printBoard(board.Name, view)
	}, log)
	conn.OnState = func(s client.State) {
		stateColor.Printf("connection %s\n", strings.ToLower(s.String()))
	}

	registry = client.NewRegistry(conn)
	if err := registry.OpenBoard(boardID, boardToken); err != nil {
		return err
	}
	for _, id := range view.Lists().IDs() {
		if err := registry.OpenList(id, boardToken); err != nil {
			return err
		}
	}
	printBoard(board.Name, view)

	poller := client.NewRemovalPoller(api, boardID, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Run(gctx)
	})
	g.Go(func() error {
		return poller.Run(gctx, func(r client.Removal) {
			if _, ok := view.List(r.ID); !ok {
				return
			}
			view.RemoveList(r.ID)
			_ = registry.CloseList(r.ID)
			removedColor.Printf("list %d removed\n", r.ID)
			printBoard(board.Name, view)
		})
	})

	err = g.Wait()
	_ = registry.CloseAll()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printBoard(name string, view *client.BoardView) {
	listColor.Printf("== %s ==\n", name)
	for _, listID := range view.Lists().IDs() {
		l, _ := view.List(listID)
		listColor.Printf("%s\n", l.Name)
		for _, cardID := range view.Cards(listID).IDs() {
			c, _ := view.Card(cardID)
			fmt.Printf("  - %s\n", c.Title)
		}
	}
}

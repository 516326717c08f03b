// Command history prints the latest messages of the shared transcript as a table.
package main

import (
	"chat-panel/domain"
	"chat-panel/infrastructure/rest"
	"chat-panel/internal"
	"chat-panel/moderation"
	"chat-panel/repositories"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2

	maxLookups = 4
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "History terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	limit := flag.Int("limit", 20, "Number of messages to show")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	moderator, err := moderation.NewModerator(log, internal.WordList(config.CensoredWords), replacement)
	if err != nil {
		return exitConfig, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := rest.NewClient(log, rest.NewHTTPClient(config.HTTPTimeout), config.BackendURL, config.AnonKey, config.HTTPTimeout)
	anonymous := func() string { return "" }
	messages, err := repositories.NewMessageRepository(log, client, anonymous, time.Minute).LoadRecent(ctx, *limit)
	if err != nil {
		return exitRuntime, fmt.Errorf("load messages: %w", err)
	}
	names, err := resolveNames(ctx, repositories.NewUsernameRepository(log, client, anonymous), messages)
	if err != nil {
		return exitRuntime, err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Time", "Author", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	// Oldest first, like the panel.
	for _, msg := range lo.Reverse(messages) {
		author := names[msg.UserID]
		if config.Colours {
			author = color.HEX(domain.UsernameColor(author)).Sprint(author)
		}
		table.Append([]string{
			domain.ShortID(msg.ID),
			msg.CreatedAt.Local().Format("Jan 02 15:04"),
			author,
			moderator.Mask(msg.Content),
		})
	}
	table.Render()
	return exitOK, nil
}

// resolveNames looks every distinct author up once, a few at a time.
// Authors without a username keep their id.
func resolveNames(ctx context.Context, repo *repositories.UsernameRepository, messages []domain.Message) (map[string]string, error) {
	ids := lo.Uniq(lo.Map(messages, func(msg domain.Message, _ int) string { return msg.UserID }))
	var mu sync.Mutex
	names := make(map[string]string, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for _, id := range ids {
		g.Go(func() error {
			name, found, err := repo.FindByUserID(ctx, id)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", id, err)
			}
			if !found {
				name = id
			}
			mu.Lock()
			names[id] = name
			mu.Unlock()
			return nil
		})
	}
	return names, g.Wait()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/samvad-hq/feedbin-client/internal/app"
	"github.com/samvad-hq/feedbin-client/internal/config"
	"github.com/samvad-hq/feedbin-client/internal/logger"
	"github.com/samvad-hq/feedbin-client/pkg/feedbin"
)

// cliApp holds what every command action needs.
type cliApp struct {
	cfg *config.Config
	log logger.Logger
	out io.Writer
}

func (a *cliApp) command() *cli.Command {
	return &cli.Command{
		Name:  "feedbin",
		Usage: "Feedbin v2 API client",
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check the configured credentials",
				Action: a.validate,
			},
			{
				Name:  "subscriptions",
				Usage: "Manage subscriptions",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List subscriptions", Action: a.listSubscriptions},
					{Name: "add", Usage: "Subscribe to a feed or site", ArgsUsage: "<url>", Action: a.addSubscription},
					{Name: "rename", Usage: "Set a custom title", ArgsUsage: "<subscription-id> <title>", Action: a.renameSubscription},
					{Name: "remove", Usage: "Unsubscribe", ArgsUsage: "<subscription-id>", Action: a.removeSubscription},
				},
			},
			{
				Name:  "tags",
				Usage: "Manage tags",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List tags", Action: a.listTags},
					{Name: "rename", Usage: "Rename a tag", ArgsUsage: "<old-name> <new-name>", Action: a.renameTag},
					{Name: "remove", Usage: "Delete a tag", ArgsUsage: "<name>", Action: a.removeTag},
				},
			},
			{
				Name:  "taggings",
				Usage: "Manage feed taggings",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List taggings", Action: a.listTaggings},
					{Name: "add", Usage: "Tag a feed", ArgsUsage: "<feed-id> <name>", Action: a.addTagging},
					{Name: "remove", Usage: "Remove a tagging", ArgsUsage: "<tagging-id>", Action: a.removeTagging},
				},
			},
			{
				Name:   "icons",
				Usage:  "List feed icons",
				Action: a.listIcons,
			},
			{
				Name:  "entries",
				Usage: "List entries from the last three months",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "feed", Usage: "Limit to a feed id"},
					&cli.StringFlag{Name: "page", Usage: "Next-page token from a previous call"},
					&cli.StringFlag{Name: "ids", Usage: "Comma-separated entry ids (at most 100)"},
				},
				Action: a.listEntries,
			},
			a.entryStateCommand("unread", "Unread entry ids", "mark", "clear",
				(*feedbin.Client).RetrieveUnreadEntries, (*feedbin.Client).CreateUnreadEntries, (*feedbin.Client).DeleteUnreadEntries),
			a.entryStateCommand("starred", "Starred entry ids", "star", "unstar",
				(*feedbin.Client).RetrieveStarredEntries, (*feedbin.Client).CreateStarredEntries, (*feedbin.Client).DeleteStarredEntries),
			{
				Name:  "sync",
				Usage: "Sync new entries and publish them",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "once", Usage: "Run a single pass and exit"},
				},
				Action: a.sync,
			},
		},
	}
}

// client builds a Feedbin client, prompting for the password when none is configured.
func (a *cliApp) client() (*feedbin.Client, error) {
	if a.cfg.FeedbinUsername == "" {
		return nil, fmt.Errorf("FEEDBIN_USERNAME is not set")
	}
	if a.cfg.FeedbinPassword == "" {
		password, err := promptPassword(a.cfg.FeedbinUsername)
		if err != nil {
			return nil, err
		}
		a.cfg.FeedbinPassword = password
	}
	return app.NewClient(a.cfg, a.log), nil
}

func promptPassword(username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("FEEDBIN_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Feedbin password for %s: ", username)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func (a *cliApp) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *cliApp) validate(ctx context.Context, _ *cli.Command) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	ok, err := c.ValidateCredentials(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]bool{"valid": ok})
}

func (a *cliApp) listSubscriptions(ctx context.Context, _ *cli.Command) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	subs, err := c.RetrieveSubscriptions(ctx)
	if err != nil {
		return err
	}
	return a.print(subs)
}

func (a *cliApp) addSubscription(ctx context.Context, cmd *cli.Command) error {
	feedURL, err := requireArg(cmd, 0, "url")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	res, err := c.CreateSubscription(ctx, feedURL)
	if err != nil {
		return err
	}
	return a.print(describeResult(res))
}

// describeResult flattens the subscription outcome into a printable value.
func describeResult(res feedbin.CreateSubscriptionResult) map[string]any {
	switch r := res.(type) {
	case feedbin.SubscriptionCreated:
		return map[string]any{"result": "created", "subscription": r.Subscription}
	case feedbin.SubscriptionChoices:
		return map[string]any{"result": "multiple_choices", "choices": r.Choices}
	case feedbin.AlreadySubscribed:
		return map[string]any{"result": "already_subscribed"}
	case feedbin.SubscriptionNotFound:
		return map[string]any{"result": "not_found"}
	default:
		return map[string]any{"result": "unknown"}
	}
}

func (a *cliApp) renameSubscription(ctx context.Context, cmd *cli.Command) error {
	id, err := requireIntArg(cmd, 0, "subscription-id")
	if err != nil {
		return err
	}
	title, err := requireArg(cmd, 1, "title")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	if err := c.RenameSubscription(ctx, id, title); err != nil {
		return err
	}
	return a.print(map[string]any{"renamed": id, "title": title})
}

func (a *cliApp) removeSubscription(ctx context.Context, cmd *cli.Command) error {
	id, err := requireIntArg(cmd, 0, "subscription-id")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	if err := c.DeleteSubscription(ctx, id); err != nil {
		return err
	}
	return a.print(map[string]int{"removed": id})
}

func (a *cliApp) listTags(ctx context.Context, _ *cli.Command) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	tags, err := c.RetrieveTags(ctx)
	if err != nil {
		return err
	}
	return a.print(tags)
}

func (a *cliApp) renameTag(ctx context.Context, cmd *cli.Command) error {
	oldName, err := requireArg(cmd, 0, "old-name")
	if err != nil {
		return err
	}
	newName, err := requireArg(cmd, 1, "new-name")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	if err := c.RenameTag(ctx, oldName, newName); err != nil {
		return err
	}
	return a.print(map[string]string{"old_name": oldName, "new_name": newName})
}

func (a *cliApp) removeTag(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, 0, "name")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	taggings, err := c.DeleteTag(ctx, name)
	if err != nil {
		return err
	}
	return a.print(taggings)
}

func (a *cliApp) listTaggings(ctx context.Context, _ *cli.Command) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	taggings, err := c.RetrieveTaggings(ctx)
	if err != nil {
		return err
	}
	return a.print(taggings)
}

func (a *cliApp) addTagging(ctx context.Context, cmd *cli.Command) error {
	feedID, err := requireIntArg(cmd, 0, "feed-id")
	if err != nil {
		return err
	}
	name, err := requireArg(cmd, 1, "name")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	id, err := c.CreateTagging(ctx, feedID, name)
	if err != nil {
		return err
	}
	return a.print(feedbin.Tagging{ID: id, FeedID: feedID, Name: name})
}

func (a *cliApp) removeTagging(ctx context.Context, cmd *cli.Command) error {
	id, err := requireIntArg(cmd, 0, "tagging-id")
	if err != nil {
		return err
	}
	c, err := a.client()
	if err != nil {
		return err
	}
	if err := c.DeleteTagging(ctx, id); err != nil {
		return err
	}
	return a.print(map[string]int{"removed": id})
}

func (a *cliApp) listIcons(ctx context.Context, _ *cli.Command) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	icons, err := c.RetrieveIcons(ctx)
	if err != nil {
		return err
	}
	return a.print(icons)
}

type entriesPage struct {
	Entries  []feedbin.Entry `json:"entries"`
	NextPage string          `json:"next_page,omitempty"`
}

func (a *cliApp) listEntries(ctx context.Context, cmd *cli.Command) error {
	var ids []int
	if raw := cmd.String("ids"); raw != "" {
		parsed, err := parseIDs(strings.Split(raw, ","))
		if err != nil {
			return err
		}
		ids = parsed
	}
	var feedID int
	if raw := cmd.String("feed"); raw != "" {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid feed id %q", raw)
		}
		feedID = id
	}

	c, err := a.client()
	if err != nil {
		return err
	}

	var page entriesPage
	switch {
	case len(ids) > 0:
		page.Entries, err = c.RetrieveEntriesByIDs(ctx, ids)
	case cmd.String("page") != "":
		page.Entries, page.NextPage, err = c.RetrieveEntriesPage(ctx, cmd.String("page"))
	case feedID != 0:
		page.Entries, page.NextPage, err = c.RetrieveFeedEntries(ctx, feedID)
	default:
		page.Entries, page.NextPage, err = c.RetrieveEntries(ctx)
	}
	if err != nil {
		return err
	}
	return a.print(page)
}

type (
	listIDsFunc   func(*feedbin.Client, context.Context) ([]int, error)
	updateIDsFunc func(*feedbin.Client, context.Context, []int) error
)

// entryStateCommand builds the list/add/remove tree shared by unread and starred.
func (a *cliApp) entryStateCommand(name, usage, addName, removeName string, list listIDsFunc, add, remove updateIDsFunc) *cli.Command {
	update := func(fn updateIDsFunc, verb string) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			ids, err := parseIDs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("at least one entry id is required")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := fn(c, ctx, ids); err != nil {
				return err
			}
			return a.print(map[string][]int{verb: ids})
		}
	}

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entry ids",
				Action: func(ctx context.Context, _ *cli.Command) error {
					c, err := a.client()
					if err != nil {
						return err
					}
					ids, err := list(c, ctx)
					if err != nil {
						return err
					}
					if ids == nil {
						ids = []int{}
					}
					return a.print(ids)
				},
			},
			{Name: addName, Usage: "Add entry ids", ArgsUsage: "<entry-id>...", Action: update(add, addName)},
			{Name: removeName, Usage: "Remove entry ids", ArgsUsage: "<entry-id>...", Action: update(remove, removeName)},
		},
	}
}

func (a *cliApp) sync(ctx context.Context, cmd *cli.Command) error {
	if a.cfg.FeedbinPassword == "" {
		password, err := promptPassword(a.cfg.FeedbinUsername)
		if err != nil {
			return err
		}
		a.cfg.FeedbinPassword = password
	}

	syncer, err := app.NewSyncer(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	if !cmd.Bool("once") {
		return syncer.Run(ctx)
	}
	defer syncer.Close()

	stats, err := syncer.RunOnce(ctx)
	if err != nil {
		return err
	}
	return a.print(stats)
}

func requireArg(cmd *cli.Command, i int, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().Get(i))
	if v == "" {
		return "", fmt.Errorf("missing argument <%s>", name)
	}
	return v, nil
}

func requireIntArg(cmd *cli.Command, i int, name string) (int, error) {
	v, err := requireArg(cmd, i, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid <%s> %q", name, v)
	}
	return n, nil
}

func parseIDs(raw []string) ([]int, error) {
	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("invalid entry id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Command admin provides operator utilities for managing Clon accounts.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/aquawaran/Clon-Official/internal/config"
	"github.com/aquawaran/Clon-Official/internal/database"
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "admin",
		Usage: "manage Clon accounts",
		Commands: []*cli.Command{
			{
				Name:      "ban",
				Usage:     "ban a user",
				ArgsUsage: "<public-id>",
				Action:    withUsers(func(c *cli.Context, users repository.UserRepository) error { return setBanned(c, users, true) }),
			},
			{
				Name:      "unban",
				Usage:     "lift a ban",
				ArgsUsage: "<public-id>",
				Action:    withUsers(func(c *cli.Context, users repository.UserRepository) error { return setBanned(c, users, false) }),
			},
			{
				Name:      "promote",
				Usage:     "grant the creator role",
				ArgsUsage: "<public-id>",
				Action:    withUsers(func(c *cli.Context, users repository.UserRepository) error { return setCreator(c, users, true) }),
			},
			{
				Name:      "demote",
				Usage:     "revoke the creator role",
				ArgsUsage: "<public-id>",
				Action:    withUsers(func(c *cli.Context, users repository.UserRepository) error { return setCreator(c, users, false) }),
			},
			{
				Name:  "list-users",
				Usage: "list accounts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "banned", Usage: "only banned accounts"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "match name, username or public id"},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
				Action: withUsers(listUsers),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withUsers(fn func(*cli.Context, repository.UserRepository) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return fn(c, repository.NewUserRepository(db))
	}
}

func lookup(c *cli.Context, users repository.UserRepository) (*models.User, error) {
	if c.NArg() != 1 {
		return nil, cli.Exit("expected exactly one <public-id>", 2)
	}
	publicID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid public id %q", c.Args().First()), 2)
	}
	return users.GetByPublicID(c.Context, publicID)
}

func setBanned(c *cli.Context, users repository.UserRepository, banned bool) error {
	user, err := lookup(c, users)
	if err != nil {
		return err
	}
	if user.IsBanned == banned {
		fmt.Printf("User %s (%d) already has banned=%v\n", user.Username, user.PublicID, banned)
		return nil
	}
	if err := users.SetBanned(c.Context, user.ID, banned); err != nil {
		return err
	}
	fmt.Printf("✅ %s (%d) banned=%v\n", user.Username, user.PublicID, banned)
	return nil
}

func setCreator(c *cli.Context, users repository.UserRepository, creator bool) error {
	user, err := lookup(c, users)
	if err != nil {
		return err
	}
	if user.IsCreator == creator {
		fmt.Printf("User %s (%d) already has creator=%v\n", user.Username, user.PublicID, creator)
		return nil
	}
	if err := users.SetCreator(c.Context, user.ID, creator); err != nil {
		return err
	}
	fmt.Printf("✅ %s (%d) creator=%v\n", user.Username, user.PublicID, creator)
	return nil
}

func listUsers(c *cli.Context, users repository.UserRepository) error {
	list, err := users.List(c.Context, repository.UserFilter{
		BannedOnly: c.Bool("banned"),
		Query:      c.String("query"),
		Limit:      c.Int("limit"),
	})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Println("─────────────────────────────────────")
	for _, u := range list {
		fmt.Printf("%d | %s | %s | banned=%v creator=%v verified=%v\n",
			u.PublicID, u.Username, u.Email, u.IsBanned, u.IsCreator, u.IsVerified)
	}
	fmt.Println("─────────────────────────────────────")
	return nil
}

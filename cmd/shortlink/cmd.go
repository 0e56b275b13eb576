package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/app"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

type cli struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "shortlink",
		Short: "URL shortener with click tracking",
		Long: `shortlink shortens URLs, redirects /s/{slug} to the original URL and counts clicks.

Without a subcommand it starts the HTTP server.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
		RunE:              c.runServe,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to the YAML config (or set CONFIG_PATH env)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Dotenv file loaded before the config")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE:  c.runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			Args:  cobra.NoArgs,
			RunE:  c.runMigrate,
		},
		c.newShortenCmd(),
		c.newListCmd(),
	)

	return root
}

func (c *cli) loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(c.envFile); err != nil {
		return err
	}

	// CONFIG_PATH may come from the dotenv file.
	path := c.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return errors.New("config path is required: use --config or CONFIG_PATH")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	c.cfg = cfg
	return nil
}

func (c *cli) newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, app.NewLogger(c.cfg.Env))
}

func (c *cli) runServe(cmd *cobra.Command, args []string) error {
	a, err := c.newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(cmd.Context())
}

func (c *cli) runMigrate(cmd *cobra.Command, args []string) error {
	a, err := c.newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", c.cfg.Storage.Driver)
	return nil
}

func (c *cli) newShortenCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "shorten <url>",
		Short: "Shorten a URL and print the short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			link, err := a.Links().ShortenURL(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), link.ShortURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the link (empty for anonymous)")

	return cmd
}

func (c *cli) newListCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the links of an owner, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			links, err := a.Links().ListLinks(cmd.Context(), owner)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tCLICKS\tCREATED\tURL")
			for _, l := range links {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", l.Slug, l.Clicks, l.CreatedAt.Format(time.RFC3339), l.OriginalURL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose links are listed")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

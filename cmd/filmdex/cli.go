package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"filmdex/internal/cache"
	"filmdex/internal/errors"
	"filmdex/internal/repo"
)

func newCLIApp(r *repo.Repository, engine *cache.Engine, version string) *cli.App {
	return &cli.App{
		Name:    "filmdex",
		Usage:   "Offline-first movie discovery",
		Version: version,
		Commands: []*cli.Command{
			searchCmd(r),
			popularCmd(r),
			trendingCmd(r),
			detailsCmd(r),
			favoritesCmd(r),
			cacheCmd(engine),
			statusCmd(r),
		},
	}
}

func searchCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for movies by title",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Value:   1,
				Usage:   "Result page to fetch",
			},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			result, err := r.Search(c.Context, query, c.Int("page"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

func popularCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:  "popular",
		Usage: "List popular movies",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Value:   1,
				Usage:   "Result page to fetch",
			},
		},
		Action: func(c *cli.Context) error {
			result, err := r.Popular(c.Context, c.Int("page"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

func trendingCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:  "trending",
		Usage: "List movies trending this week",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Value:   1,
				Usage:   "Result page to fetch",
			},
		},
		Action: func(c *cli.Context) error {
			result, err := r.Trending(c.Context, c.Int("page"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

func detailsCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:      "details",
		Usage:     "Show full details for a movie",
		ArgsUsage: "<movie-id>",
		Action: func(c *cli.Context) error {
			id, err := parseMovieID(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			detail, err := r.Details(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(detail)
		},
	}
}

func favoritesCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:  "favorites",
		Usage: "Manage favorite movies",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all favorites",
				Action: func(c *cli.Context) error {
					movies, err := r.ListFavorites()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"favorites": movies,
						"count":     len(movies),
					})
				},
			},
			{
				Name:      "toggle",
				Usage:     "Toggle favorite status for a movie",
				ArgsUsage: "<movie-id>",
				Action: func(c *cli.Context) error {
					id, err := parseMovieID(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					favorite, err := r.ToggleFavorite(id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{
						"id":       id,
						"favorite": favorite,
					})
				},
			},
		},
	}
}

func cacheCmd(engine *cache.Engine) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local cache",
		Subcommands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Delete expired cached pages and snapshots",
				Action: func(c *cli.Context) error {
					deleted, err := engine.Sweep()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"deleted": deleted})
				},
			},
			{
				Name:  "clear",
				Usage: "Delete all cached data (favorites are kept)",
				Action: func(c *cli.Context) error {
					if err := engine.Clear(); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"cleared": true})
				},
			},
		},
	}
}

func statusCmd(r *repo.Repository) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show connectivity status",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"online": r.Online()})
		},
	}
}

func parseMovieID(arg string) (int64, error) {
	if arg == "" {
		return 0, errors.NewInvalidRequest("movie id is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid movie id: %s", arg))
	}
	return id, nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/codexbooks/codex/pkg/config"
	"github.com/codexbooks/codex/pkg/database"
	"github.com/codexbooks/codex/pkg/fileutils"
	"github.com/codexbooks/codex/pkg/library"
	"github.com/codexbooks/codex/pkg/models"
	"github.com/codexbooks/codex/pkg/stats"
	"github.com/codexbooks/codex/pkg/storage"
	"github.com/codexbooks/codex/pkg/version"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	log.Info("starting codex", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if _, _, err := fileutils.EnsureDataDirs(cfg.DataDir); err != nil {
		log.Err(err).Fatal("data directory error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	store := storage.NewSQLite(db)
	if err := store.Init(context.Background()); err != nil {
		log.Err(err).Fatal("storage init error")
	}

	svc := library.NewService(store, fileutils.NewStore(), library.Options{DataDir: cfg.DataDir})

	app := &cli.App{
		Name:        "codex",
		Usage:       "CLI to manage a personal ebook library",
		Description: "CLI to manage a personal ebook library",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "import a book file into the library",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "file type (epub, pdf, mobi, azw, azw3); detected when omitted"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one path argument", 1)
					}

					book, err := svc.ImportBook(c.Context, c.Args().First(), models.FileType(c.String("type")))
					if err != nil {
						return err
					}

					fmt.Printf("Imported %q by %s (%s)\n", book.Title, book.Author, book.ID)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list books, most recently added first",
				Action: func(c *cli.Context) error {
					books, err := svc.ListBooks(c.Context)
					if err != nil {
						return err
					}

					printBooks(books)
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "search books by title or author",
				ArgsUsage: "<query>",
				Action: func(c *cli.Context) error {
					query := strings.Join(c.Args().Slice(), " ")
					if query == "" {
						return cli.Exit("expected a search query", 1)
					}

					books, err := svc.SearchBooks(c.Context, query)
					if err != nil {
						return err
					}

					printBooks(books)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a book, its file, and its reading history",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one id argument", 1)
					}
					return svc.DeleteBook(c.Context, c.Args().First())
				},
			},
			{
				Name:  "stats",
				Usage: "print overall reading statistics",
				Action: func(c *cli.Context) error {
					books, err := svc.ListBooks(c.Context)
					if err != nil {
						return err
					}
					totals, err := svc.ReadingStats(c.Context)
					if err != nil {
						return err
					}

					total, completed := stats.LibraryCounts(books)
					fmt.Printf("Books: %d (%d completed)\n", total, completed)
					fmt.Printf("Pages read: %d\n", totals.TotalPages)
					fmt.Printf("Time spent: %d minutes\n", totals.TotalTime)
					return nil
				},
			},
			{
				Name:  "categories",
				Usage: "list categories in display order",
				Action: func(c *cli.Context) error {
					categories, err := svc.ListCategories(c.Context)
					if err != nil {
						return err
					}

					for _, cat := range categories {
						fmt.Printf("%s  %s\n", cat.ID, cat.Name)
					}
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}

	if err := store.Close(); err != nil {
		log.Err(err).Error("database close error")
	}
}

func printBooks(books []*models.Book) {
	for _, b := range books {
		fmt.Printf("%s  %q by %s (%d%%)\n", b.ID, b.Title, b.Author, b.Progress())
	}
}

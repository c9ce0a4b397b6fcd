package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/booklook/booklook/pkg/books"
	"github.com/booklook/booklook/pkg/cache"
	"github.com/booklook/booklook/pkg/config"
	"github.com/booklook/booklook/pkg/database"
	"github.com/booklook/booklook/pkg/htmlutil"
	"github.com/booklook/booklook/pkg/pages"
	"github.com/booklook/booklook/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	app := &cli.App{
		Name:    "import",
		Usage:   "load text content into a book",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "book-id",
				Usage:    "id of the book to load content into",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "plain text file to import, or - for stdin",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "html",
				Usage: "treat the input as HTML; on by default for .html, .htm and .xhtml files",
			},
			&cli.IntFlag{
				Name:  "words-per-page",
				Usage: "maximum words on a page",
				Value: cfg.WordsPerPage,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context

			path := c.String("file")
			text, err := readInput(path)
			if err != nil {
				return err
			}
			if c.Bool("html") || isHTML(path) {
				text = htmlutil.StripTags(text)
			}

			db, err := database.New(cfg)
			if err != nil {
				return errors.WithStack(err)
			}
			defer db.Close()

			bookCache, err := cache.New(ctx, cfg)
			if err != nil {
				return errors.WithStack(err)
			}
			defer bookCache.Close()

			bookService := books.NewService(db, bookCache, cfg.CacheTTL)
			pageService := pages.NewService(db, bookCache, bookService, cfg)

			result, err := pageService.ImportContent(ctx, c.Int("book-id"), text, c.Int("words-per-page"))
			if err != nil {
				return errors.WithStack(err)
			}

			fmt.Printf("Imported %d pages (%d words) into book %d\n", result.TotalPages, result.WordCount, result.BookID)
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("import error")
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), errors.Wrap(err, "failed to read stdin")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(b), nil
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

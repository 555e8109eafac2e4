// Command komavi is a comic/manga reader for Komga servers and local
// archive directories.
//
// Usage:
//
//	komavi -book <komga book id>     read from the configured Komga server
//	komavi <directory>               read a local directory of archives
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"komavi/internal/config"
	"komavi/internal/imaging"
	"komavi/internal/komf"
	"komavi/internal/komga"
	"komavi/internal/local"
	"komavi/internal/reader"
	"komavi/internal/ui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	bookID := flag.String("book", "", "book to open (Komga book ID, or archive file name for local libraries)")
	debug := flag.Bool("debug", false, "enable verbose logging")
	noProgress := flag.Bool("no-progress", false, "do not record read progress")
	flag.Parse()

	reader.Debug = *debug

	result := config.LoadFromPath(*configPath)
	for _, warning := range result.Warnings {
		log.Printf("config: %s", warning)
	}
	store := config.NewStore(*configPath, result.Config)
	cfg := store.Config()

	filter, err := imaging.ParseFilter(cfg.ImageFilter)
	if err != nil {
		filter = imaging.FilterBilinear
	}

	books, source, openBook, err := openLibrary(flag.Arg(0), cfg, filter, *bookID)
	if err != nil {
		log.Fatal(err)
	}

	var komfClient *komf.Client
	if cfg.KomfURL != "" {
		komfClient, err = komf.NewClient(cfg.KomfURL)
		if err != nil {
			log.Printf("komf disabled: %v", err)
		}
	}

	notices := ui.NewNotices()
	if komfClient != nil {
		// Reachability check runs off the startup path: a dead komf only
		// costs a warning, never the reader.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := komfClient.Ping(ctx); err != nil {
				log.Printf("Warning: %v", err)
				notices.Notify("Komf is not reachable, metadata actions will fail")
			}
		}()
	}

	session := reader.NewSession(books, store, notices, !*noProgress)
	paged := reader.NewPagedReader(session, source)
	continuous := reader.NewContinuousReader(session, source, reader.NewScreenScale())
	paged.SetPreloadCount(cfg.PreloadCount)
	continuous.SetImageCacheSize(cfg.CacheSize)
	paged.Initialize()
	continuous.Initialize()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := session.Initialize(ctx, openBook); err != nil {
		cancel()
		log.Fatalf("failed to open book %s: %v", openBook, err)
	}
	cancel()

	app := ui.NewApp(ui.Options{
		Store:        store,
		Session:      session,
		Paged:        paged,
		Continuous:   continuous,
		Notices:      notices,
		Komf:         komfClient,
		KomfLibrary:  cfg.KomfLibraryID,
		ConfigStatus: result,
	})
	defer app.Shutdown()

	ebiten.SetWindowTitle("komavi")
	ebiten.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if cfg.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	if err := ebiten.RunGame(app); err != nil {
		log.Fatal(err)
	}
}

// openLibrary picks the book source: a local archive directory when a
// path is given, the configured Komga server otherwise. Returns the
// source pair plus the book to open.
func openLibrary(dir string, cfg config.Config, filter imaging.Filter, bookID string) (reader.BookSource, reader.ImageSource, string, error) {
	if dir != "" {
		library, err := local.Open(dir, filter)
		if err != nil {
			return nil, nil, "", err
		}
		if bookID == "" {
			bookID, err = firstUnfinished(library)
			if err != nil {
				return nil, nil, "", err
			}
		}
		return library, library, bookID, nil
	}

	if cfg.KomgaURL == "" {
		return nil, nil, "", fmt.Errorf("no library: pass a directory argument or set komga_url in the config")
	}
	if bookID == "" {
		return nil, nil, "", fmt.Errorf("reading from Komga requires -book <book id>")
	}
	client, err := komga.NewClient(komga.Config{
		ServerURL: cfg.KomgaURL,
		Username:  cfg.KomgaUsername,
		Password:  cfg.KomgaPassword,
		APIKey:    cfg.KomgaAPIKey,
	})
	if err != nil {
		return nil, nil, "", err
	}
	return client, komga.NewImageSource(client, filter), bookID, nil
}

// firstUnfinished resumes the series at the first book without completed
// progress, falling back to the first book.
func firstUnfinished(library *local.Library) (string, error) {
	ids := library.Books()
	if len(ids) == 0 {
		return "", fmt.Errorf("library contains no archives")
	}
	ctx := context.Background()
	for _, id := range ids {
		book, err := library.Book(ctx, id)
		if err != nil {
			continue
		}
		if book.ReadProgress == nil || !book.ReadProgress.Completed {
			return id, nil
		}
	}
	return ids[0], nil
}

package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// downloadAll fetches every link into dir with at most s.cfg.Concurrency
// transfers in flight. Failed downloads are logged and skipped; the
// returned links are the ones saved successfully.
func (s *Scraper) downloadAll(ctx context.Context, links []Link, dir string) []Link {
	s.logger.Info("start download files", slog.Int("count", len(links)))

	var (
		mu    sync.Mutex
		saved = make([]Link, 0, len(links))
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for _, link := range links {
		link := link
		g.Go(func() error {
			if err := s.downloadFile(ctx, link, dir); err != nil {
				s.logger.Error("download failed",
					slog.String("file", link.FileName),
					slog.String("url", link.URL),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			saved = append(saved, link)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("downloaded files",
		slog.Int("saved", len(saved)),
		slog.Int("failed", len(links)-len(saved)))
	return saved
}

// downloadFile streams one bulletin to dir/link.FileName.
func (s *Scraper) downloadFile(ctx context.Context, link Link, dir string) (err error) {
	resp, err := get(ctx, s.client, link.URL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	dest := filepath.Join(dir, filepath.Base(link.FileName))
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err = io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	s.logger.Debug("download successful", slog.String("path", dest))
	return nil
}

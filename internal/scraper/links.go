package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/phrazzld/spimex-api/internal/domain"
)

// bulletinMarker identifies bulletin links among the listing blocks.
const bulletinMarker = "Бюллетень"

// Link is a bulletin file to download.
type Link struct {
	URL      string
	FileName string
	Date     time.Time
}

// walkLimits decides where the listing walk ends.
type walkLimits struct {
	lastDate time.Time
	hasLast  bool
	stopYear int
}

func (l walkLimits) reached(date time.Time) bool {
	if l.hasLast && !date.After(l.lastDate) {
		return true
	}
	return date.Year() <= l.stopYear
}

// pageResult is what one listing page contributes to the walk.
type pageResult struct {
	links []Link
	next  string
	stop  bool
}

// parseListing extracts bulletin links from one listing page. Blocks are
// read in order; the first block that is not a bulletin ends the page and
// the first bulletin at or past the walk limits ends the whole walk.
func parseListing(doc *goquery.Document, baseURL string, limits walkLimits) (pageResult, error) {
	var res pageResult
	var parseErr error

	doc.Find("div.accordeon-inner__wrap-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		a := item.Find("a").First()
		if a.Length() == 0 {
			parseErr = fmt.Errorf("%w: block without link", ErrMalformedListing)
			return false
		}
		if !strings.Contains(a.Text(), bulletinMarker) {
			return false
		}

		span := item.Find("span").First()
		if span.Length() == 0 {
			parseErr = fmt.Errorf("%w: bulletin without date", ErrMalformedListing)
			return false
		}
		dateStr := strings.TrimSpace(span.Text())
		date, err := domain.ParseBulletinDate(dateStr)
		if err != nil {
			parseErr = fmt.Errorf("%w: %v", ErrMalformedListing, err)
			return false
		}

		if limits.reached(date) {
			res.stop = true
			return false
		}

		href, ok := a.Attr("href")
		if !ok || href == "" {
			parseErr = fmt.Errorf("%w: bulletin link without href", ErrMalformedListing)
			return false
		}
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}

		res.links = append(res.links, Link{
			URL:      baseURL + href,
			FileName: dateStr + "." + fileExt(href),
			Date:     date,
		})
		return true
	})
	if parseErr != nil {
		return pageResult{}, parseErr
	}

	if !res.stop {
		if next, ok := doc.Find(".bx-pag-next a").First().Attr("href"); ok {
			res.next = next
		}
	}
	return res, nil
}

// fileExt returns the extension of the last path segment, ignoring the query.
func fileExt(href string) string {
	p := strings.SplitN(href, "?", 2)[0]
	return strings.TrimPrefix(path.Ext(path.Base(p)), ".")
}

// collectLinks walks the listing from startPath until a limit or the last
// page is reached.
func (s *Scraper) collectLinks(ctx context.Context, limits walkLimits) ([]Link, error) {
	var links []Link
	current := s.cfg.StartPath

	for page := 1; current != ""; page++ {
		s.logger.Debug("fetching listing page",
			slog.Int("page", page),
			slog.String("path", current))

		doc, err := s.fetchDocument(ctx, s.cfg.BaseURL+current)
		if err != nil {
			return nil, err
		}

		res, err := parseListing(doc, s.cfg.BaseURL, limits)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", current, err)
		}
		links = append(links, res.links...)

		if res.stop {
			s.logger.Info("stop links parsing", slog.Int("page", page))
			break
		}
		current = res.next
	}

	s.logger.Info("collected bulletin links", slog.Int("count", len(links)))
	return links, nil
}

// fetchDocument downloads and parses a listing page, retrying transient
// failures with exponential backoff.
func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var body []byte

	op := func() error {
		resp, err := get(ctx, s.client, url)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err = io.ReadAll(resp.Body)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxElapsedTime = s.retryMaxElapsed

	notify := func(err error, next time.Duration) {
		s.logger.Warn("listing fetch failed, retrying",
			slog.String("url", url),
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponse
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, nil
}

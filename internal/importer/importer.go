// Package importer pulls tournament listings from partner directory pages
// and upserts them as unpublished drafts for admin review. Drafts key on
// source_url so re-running an import refreshes rather than duplicates.
//
// Partner pages mark each event with a .tournament-card element carrying
// data-* attributes for the structured fields; free text is read from the
// card body.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pitchfinderuk/pitchfinder-api/internal/tournaments"
)

const (
	fetchTimeout    = 30 * time.Second
	maxConcurrent   = 4
	dateLayout      = "2006-01-02"
	userAgentHeader = "pitchfinder-importer/1.0"
	cardSelector    = ".tournament-card"
	maxCardsPerPage = 500
)

// Result summarises one import run.
type Result struct {
	Pages    int `json:"pages"`
	Found    int `json:"found"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Importer fetches and parses partner listing pages.
type Importer struct {
	store  *tournaments.Store
	client *http.Client
	logger *slog.Logger
}

// New creates an Importer backed by the tournament store.
func New(store *tournaments.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:  store,
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

// Run imports all source URLs concurrently and aggregates the result.
// Individual page failures are logged and skipped; Run only returns an
// error when the context is cancelled.
func (im *Importer) Run(ctx context.Context, sourceURLs []string) (*Result, error) {
	res := &Result{Pages: len(sourceURLs)}
	results := make([]Result, len(sourceURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, u := range sourceURLs {
		i, u := i, u
		g.Go(func() error {
			pageRes, err := im.importPage(gctx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				im.logger.Warn("Import page failed", "url", u, "error", err)
				return nil
			}
			results[i] = *pageRes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		res.Found += r.Found
		res.Upserted += r.Upserted
		res.Skipped += r.Skipped
	}
	im.logger.Info("Import run complete",
		"pages", res.Pages, "found", res.Found,
		"upserted", res.Upserted, "skipped", res.Skipped)
	return res, nil
}

func (im *Importer) importPage(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentHeader)

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	res := &Result{Pages: 1}
	doc.Find(cardSelector).EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= maxCardsPerPage {
			return false
		}
		res.Found++

		draft, err := parseCard(card, pageURL)
		if err != nil {
			im.logger.Debug("Skipping unparseable card", "url", pageURL, "index", i, "error", err)
			res.Skipped++
			return true
		}

		if err := im.store.UpsertDraft(ctx, draft); err != nil {
			im.logger.Warn("Draft upsert failed",
				"url", pageURL, "name", draft.Name, "error", err)
			res.Skipped++
			return true
		}
		res.Upserted++
		return true
	})
	return res, nil
}

// parseCard maps one listing card to a draft tournament. Structured fields
// come from data-* attributes, descriptive text from the card body.
func parseCard(card *goquery.Selection, pageURL string) (*tournaments.Tournament, error) {
	name := strings.TrimSpace(card.Find(".tournament-name").First().Text())
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}

	start, err := attrDate(card, "data-start-date")
	if err != nil {
		return nil, err
	}
	end, err := attrDate(card, "data-end-date")
	if err != nil {
		end = start
	}

	format := tournaments.Format(card.AttrOr("data-format", ""))

	t := &tournaments.Tournament{
		Name:        name,
		Description: strings.TrimSpace(card.Find(".tournament-description").First().Text()),
		VenueName:   strings.TrimSpace(card.Find(".tournament-venue").First().Text()),
		Postcode:    strings.ToUpper(strings.TrimSpace(card.AttrOr("data-postcode", ""))),
		Region:      strings.TrimSpace(card.AttrOr("data-region", "")),
		Country:     card.AttrOr("data-country", "England"),
		StartDate:   start,
		EndDate:     end,
		Format:      format,
		AgeGroups:   attrList(card, "data-age-groups"),
		TeamTypes:   attrList(card, "data-team-types"),
		Category:    tournaments.Category(card.AttrOr("data-category", string(tournaments.CategoryTournament))),
		Published:   false,
	}

	if lon, err := strconv.ParseFloat(card.AttrOr("data-longitude", ""), 64); err == nil {
		t.Longitude = lon
	}
	if lat, err := strconv.ParseFloat(card.AttrOr("data-latitude", ""), 64); err == nil {
		t.Latitude = lat
	}
	if cost, err := strconv.ParseFloat(card.AttrOr("data-cost", ""), 64); err == nil {
		t.Cost = &cost
		t.Currency = card.AttrOr("data-currency", "GBP")
	}
	if deadline, err := attrDate(card, "data-reg-deadline"); err == nil {
		t.RegDeadline = &deadline
	}

	src := pageURL
	if href, ok := card.Find("a.tournament-link").First().Attr("href"); ok && href != "" {
		src = href
	}
	srcCopy := src + "#" + slugify(name)
	t.SourceURL = &srcCopy

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}
	return t, nil
}

func attrDate(card *goquery.Selection, attr string) (time.Time, error) {
	raw := strings.TrimSpace(card.AttrOr(attr, ""))
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", attr)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s %q: %w", attr, raw, err)
	}
	return t, nil
}

func attrList(card *goquery.Selection, attr string) []string {
	raw := card.AttrOr(attr, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

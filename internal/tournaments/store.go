package tournaments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a tournament id does not exist.
var ErrNotFound = errors.New("tournament not found")

// Store is the Postgres-backed tournament catalogue.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tournamentColumns = `id, name, description, venue_name, postcode, region, country,
	longitude, latitude, start_date, end_date, reg_deadline,
	format, age_groups, team_types, category, cost, currency,
	source_url, published, created_at`

func scanTournament(row pgx.Row) (*Tournament, error) {
	var t Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.VenueName, &t.Postcode, &t.Region,
		&t.Country, &t.Longitude, &t.Latitude, &t.StartDate, &t.EndDate,
		&t.RegDeadline, &t.Format, &t.AgeGroups, &t.TeamTypes, &t.Category,
		&t.Cost, &t.Currency, &t.SourceURL, &t.Published, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID fetches one tournament.
func (s *Store) GetByID(ctx context.Context, id int64) (*Tournament, error) {
	t, err := scanTournament(s.pool.QueryRow(ctx, "tournament_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tournament %d: %w", id, err)
	}
	return t, nil
}

// Create inserts a tournament and returns it with its assigned id.
func (s *Store) Create(ctx context.Context, t *Tournament) error {
	if err := t.Validate(); err != nil {
		return err
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tournaments (
			name, description, venue_name, postcode, region, country,
			longitude, latitude, start_date, end_date, reg_deadline,
			format, age_groups, team_types, category, cost, currency,
			source_url, published
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING id, created_at`,
		t.Name, t.Description, t.VenueName, t.Postcode, t.Region, t.Country,
		t.Longitude, t.Latitude, t.StartDate, t.EndDate, t.RegDeadline,
		t.Format, t.AgeGroups, t.TeamTypes, t.Category, t.Cost,
		orDefault(t.Currency, "GBP"), t.SourceURL, t.Published,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tournament: %w", err)
	}
	return nil
}

// Update overwrites a tournament's mutable fields.
func (s *Store) Update(ctx context.Context, t *Tournament) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE tournaments SET
			name = $2, description = $3, venue_name = $4, postcode = $5,
			region = $6, country = $7, longitude = $8, latitude = $9,
			start_date = $10, end_date = $11, reg_deadline = $12,
			format = $13, age_groups = $14, team_types = $15, category = $16,
			cost = $17, currency = $18, published = $19, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.VenueName, t.Postcode, t.Region,
		t.Country, t.Longitude, t.Latitude, t.StartDate, t.EndDate,
		t.RegDeadline, t.Format, t.AgeGroups, t.TeamTypes, t.Category,
		t.Cost, orDefault(t.Currency, "GBP"), t.Published,
	)
	if err != nil {
		return fmt.Errorf("update tournament %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Unpublish soft-removes a tournament from public listings. Records are
// never hard-deleted while delivery rows reference them.
func (s *Store) Unpublish(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "tournament_unpublish", id)
	if err != nil {
		return fmt.Errorf("unpublish tournament %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDraft inserts an imported tournament keyed by source_url, leaving it
// unpublished for admin review. Existing rows keep their published flag.
func (s *Store) UpsertDraft(ctx context.Context, t *Tournament) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.SourceURL == nil || *t.SourceURL == "" {
		return fmt.Errorf("imported tournament requires source_url")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tournaments (
			name, description, venue_name, postcode, region, country,
			longitude, latitude, start_date, end_date, reg_deadline,
			format, age_groups, team_types, category, cost, currency,
			source_url, published
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,false)
		ON CONFLICT (source_url) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			venue_name = EXCLUDED.venue_name, postcode = EXCLUDED.postcode,
			region = EXCLUDED.region, start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date, format = EXCLUDED.format,
			age_groups = EXCLUDED.age_groups, cost = EXCLUDED.cost,
			updated_at = NOW()`,
		t.Name, t.Description, t.VenueName, t.Postcode, t.Region, t.Country,
		t.Longitude, t.Latitude, t.StartDate, t.EndDate, t.RegDeadline,
		t.Format, t.AgeGroups, t.TeamTypes, t.Category, t.Cost,
		orDefault(t.Currency, "GBP"), t.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// PublishedSince returns published tournaments created after the cutoff that
// have not yet finished. Candidate set for digest cycles.
func (s *Store) PublishedSince(ctx context.Context, since, now time.Time) ([]Tournament, error) {
	rows, err := s.pool.Query(ctx, "tournaments_since", since, now)
	if err != nil {
		return nil, fmt.Errorf("tournaments since: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// SearchParams narrows a listing query. Empty slices behave as absent.
type SearchParams struct {
	Search     string
	Formats    []string
	AgeGroups  []string
	TeamTypes  []string
	Categories []string
	Regions    []string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Search lists published tournaments matching the params, soonest first.
func (s *Store) Search(ctx context.Context, p SearchParams) ([]Tournament, error) {
	var (
		where = []string{"published"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Search != "" {
		ph := arg("%" + p.Search + "%")
		where = append(where, fmt.Sprintf(
			"(name ILIKE %s OR description ILIKE %s OR venue_name ILIKE %s OR region ILIKE %s)",
			ph, ph, ph, ph))
	}
	if len(p.Formats) > 0 {
		where = append(where, fmt.Sprintf("format = ANY(%s::match_format[])", arg(p.Formats)))
	}
	if len(p.AgeGroups) > 0 {
		where = append(where, fmt.Sprintf("age_groups && %s", arg(p.AgeGroups)))
	}
	if len(p.TeamTypes) > 0 {
		where = append(where, fmt.Sprintf("team_types && %s", arg(p.TeamTypes)))
	}
	if len(p.Categories) > 0 {
		where = append(where, fmt.Sprintf("category = ANY(%s::tournament_category[])", arg(p.Categories)))
	}
	if len(p.Regions) > 0 {
		where = append(where, fmt.Sprintf("region = ANY(%s)", arg(p.Regions)))
	}
	if p.From != nil {
		where = append(where, fmt.Sprintf("end_date >= %s", arg(*p.From)))
	}
	if p.To != nil {
		where = append(where, fmt.Sprintf("start_date <= %s", arg(*p.To)))
	}

	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	sql := fmt.Sprintf(`SELECT %s FROM tournaments WHERE %s ORDER BY start_date, id LIMIT %s OFFSET %s`,
		tournamentColumns, strings.Join(where, " AND "), arg(limit), arg(p.Offset))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search tournaments: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Tournament, error) {
	var out []Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

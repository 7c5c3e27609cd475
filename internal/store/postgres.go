package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx operations the store needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Postgres implements Store against the catalog's Postgres schema.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a Store backed by the given pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// NewPool parses the URL and connects a pgx pool with the given limits.
func NewPool(ctx context.Context, url string, maxConns, minConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// FindByNaturalKey looks up an entity by its natural key.
//
// Key shapes per entity:
//   - user: {"username"} or {"email"} (email used for duplicate rejection)
//   - title: {"movie_name"} with optional {"release_date"}; a key without a
//     release date matches any row with that name
//   - episode: {"movie_id","season_number","episode_number"} or a direct
//     {"episode_id"} existence probe
//   - genre/person/studio/platform: their single name column
func (s *Postgres) FindByNaturalKey(ctx context.Context, entity Entity, key Fields) (int64, error) {
	meta, err := metaFor(entity)
	if err != nil {
		return 0, err
	}

	var query string
	var args []any

	switch entity {
	case EntityUser:
		if email, ok := key["email"]; ok {
			query = "SELECT user_id FROM users WHERE email = $1"
			args = []any{email}
		} else {
			query = "SELECT user_id FROM users WHERE username = $1"
			args = []any{key["username"]}
		}
	case EntityTitle:
		if date, ok := key["release_date"]; ok && date != nil {
			query = "SELECT movie_id FROM movies WHERE movie_name = $1 AND release_date = $2"
			args = []any{key["movie_name"], date}
		} else {
			query = "SELECT movie_id FROM movies WHERE movie_name = $1 LIMIT 1"
			args = []any{key["movie_name"]}
		}
	case EntityEpisode:
		if id, ok := key["episode_id"]; ok {
			query = "SELECT episode_id FROM episodes WHERE episode_id = $1"
			args = []any{id}
		} else {
			query = "SELECT episode_id FROM episodes WHERE movie_id = $1 AND season_number = $2 AND episode_number = $3"
			args = []any{key["movie_id"], key["season_number"], key["episode_number"]}
		}
	case EntityGenre:
		query = "SELECT genre_id FROM genres WHERE genre_name = $1"
		args = []any{key["genre_name"]}
	case EntityPerson:
		query = "SELECT cast_id FROM cast_members WHERE name = $1"
		args = []any{key["name"]}
	case EntityStudio:
		query = "SELECT studio_id FROM studios WHERE studio_name = $1"
		args = []any{key["studio_name"]}
	case EntityPlatform:
		query = "SELECT platform_id FROM streaming_platforms WHERE platform_name = $1"
		args = []any{key["platform_name"]}
	default:
		return 0, &PersistenceError{Op: "find", Target: string(entity),
			Err: errors.New("entity has no natural key")}
	}

	var id int64
	err = s.db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, &PersistenceError{Op: "find", Target: meta.Table, Err: err}
	}
	return id, nil
}

// Create inserts a new entity row and returns its generated identifier.
// Only columns declared for the entity are written; absent fields stay NULL.
func (s *Postgres) Create(ctx context.Context, entity Entity, fields Fields) (int64, error) {
	meta, err := metaFor(entity)
	if err != nil {
		return 0, err
	}

	var cols []string
	var args []any
	for _, col := range meta.Columns {
		if v, ok := fields[col]; ok {
			cols = append(cols, col)
			args = append(args, v)
		}
	}
	if len(cols) == 0 {
		return 0, &PersistenceError{Op: "create", Target: meta.Table,
			Err: errors.New("no fields to insert")}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		meta.Table, strings.Join(cols, ", "), placeholders(len(cols)), meta.IDCol)

	var id int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, &PersistenceError{Op: "create", Target: meta.Table, Err: err}
	}
	return id, nil
}

// LinkExists reports whether a junction row for the identifier tuple exists.
func (s *Postgres) LinkExists(ctx context.Context, link Link, ids []int64) (bool, error) {
	meta, err := linkFor(link)
	if err != nil {
		return false, err
	}
	if len(ids) != len(meta.IDCols) {
		return false, fmt.Errorf("store: link %s expects %d ids, got %d", link, len(meta.IDCols), len(ids))
	}

	var where []string
	var args []any
	for i, col := range meta.IDCols {
		where = append(where, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, ids[i])
	}
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s", meta.Table, strings.Join(where, " AND "))

	var one int
	err = s.db.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceError{Op: "link_exists", Target: meta.Table, Err: err}
	}
	return true, nil
}

// CreateLink inserts a junction row for the identifier tuple plus any
// declared attribute columns present in attrs.
func (s *Postgres) CreateLink(ctx context.Context, link Link, ids []int64, attrs Fields) error {
	meta, err := linkFor(link)
	if err != nil {
		return err
	}
	if len(ids) != len(meta.IDCols) {
		return fmt.Errorf("store: link %s expects %d ids, got %d", link, len(meta.IDCols), len(ids))
	}

	cols := append([]string{}, meta.IDCols...)
	args := make([]any, 0, len(ids)+len(meta.AttrCols))
	for _, id := range ids {
		args = append(args, id)
	}
	for _, col := range meta.AttrCols {
		if v, ok := attrs[col]; ok {
			cols = append(cols, col)
			args = append(args, v)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		meta.Table, strings.Join(cols, ", "), placeholders(len(cols)))

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return &PersistenceError{Op: "create_link", Target: meta.Table, Err: err}
	}
	return nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

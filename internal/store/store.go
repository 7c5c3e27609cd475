// Package store provides the data-access layer for the catalog schema.
//
// The importer talks to the catalog exclusively through the Store interface:
// natural-key lookup, entity creation, and junction-link management. Two
// implementations exist: Postgres (production, pgx) and Memory (tests and
// dry runs). Table and column names are a fixed external contract shared
// with the catalog browser and existing data exports; they must not change.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Entity identifies one of the catalog's entity tables.
type Entity string

const (
	EntityUser     Entity = "user"
	EntityTitle    Entity = "title"
	EntityGenre    Entity = "genre"
	EntityPerson   Entity = "person"
	EntityStudio   Entity = "studio"
	EntityPlatform Entity = "platform"
	EntityEpisode  Entity = "episode"
	EntityReview   Entity = "review"
	EntityDonation Entity = "donation"
)

// Link identifies one of the catalog's junction tables.
type Link string

const (
	LinkTitleGenre      Link = "title_genre"
	LinkTitleCast       Link = "title_cast"
	LinkTitleStudio     Link = "title_studio"
	LinkTitlePlatform   Link = "title_platform"
	LinkDistribution    Link = "distribution"
	LinkUserFollow      Link = "user_follow"
	LinkContainsEpisode Link = "contains_episode"
)

// Fields maps schema column names to values. A nil value means SQL NULL.
// Dates are canonical "YYYY-MM-DD" strings, ratings float64.
type Fields map[string]any

// ErrNotFound is returned by FindByNaturalKey when no row matches the key.
var ErrNotFound = errors.New("store: not found")

// PersistenceError wraps a failed read or write against the backing store.
// The importer counts these per record and carries on with the batch.
type PersistenceError struct {
	Op     string // "find", "create", "link_exists", "create_link"
	Target string // entity or link name
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the data-access interface the importer consumes.
//
// FindByNaturalKey returns ErrNotFound when no row matches; any other
// failure is a *PersistenceError. LinkExists and CreateLink take the
// resolved endpoint identifiers in the column order declared by the link's
// metadata (two for ordinary junctions, three for distribution rows).
type Store interface {
	FindByNaturalKey(ctx context.Context, entity Entity, key Fields) (int64, error)
	Create(ctx context.Context, entity Entity, fields Fields) (int64, error)
	LinkExists(ctx context.Context, link Link, ids []int64) (bool, error)
	CreateLink(ctx context.Context, link Link, ids []int64, attrs Fields) error
}

// entityMeta describes how an Entity maps onto the schema.
type entityMeta struct {
	Table   string
	IDCol   string
	Columns []string // insertable columns, in insert order
}

// linkMeta describes how a Link maps onto its junction table.
type linkMeta struct {
	Table    string
	IDCols   []string // endpoint identifier columns, in call order
	AttrCols []string // optional link attribute columns
}

var entityMetas = map[Entity]entityMeta{
	EntityUser: {
		Table: "users", IDCol: "user_id",
		Columns: []string{"username", "email", "password"},
	},
	EntityTitle: {
		Table: "movies", IDCol: "movie_id",
		Columns: []string{"movie_name", "release_date", "language", "description"},
	},
	EntityGenre: {
		Table: "genres", IDCol: "genre_id",
		Columns: []string{"genre_name"},
	},
	EntityPerson: {
		Table: "cast_members", IDCol: "cast_id",
		Columns: []string{"name", "dob", "bio", "age"},
	},
	EntityStudio: {
		Table: "studios", IDCol: "studio_id",
		Columns: []string{"studio_name", "country"},
	},
	EntityPlatform: {
		Table: "streaming_platforms", IDCol: "platform_id",
		Columns: []string{"platform_name", "subscription_type"},
	},
	EntityEpisode: {
		Table: "episodes", IDCol: "episode_id",
		Columns: []string{"movie_id", "season_number", "episode_title", "episode_number", "release_date"},
	},
	EntityReview: {
		Table: "reviews_ratings", IDCol: "review_id",
		Columns: []string{"user_id", "movie_id", "rating", "comment"},
	},
	EntityDonation: {
		Table: "donations", IDCol: "donation_id",
		Columns: []string{"user_id", "donation_amount", "comment"},
	},
}

var linkMetas = map[Link]linkMeta{
	LinkTitleGenre: {
		Table: "movie_genre", IDCols: []string{"movie_id", "genre_id"},
	},
	LinkTitleCast: {
		Table: "movie_cast", IDCols: []string{"movie_id", "cast_id"},
		AttrCols: []string{"role", "character_name"},
	},
	LinkTitleStudio: {
		Table: "movie_studio", IDCols: []string{"movie_id", "studio_id"},
	},
	LinkTitlePlatform: {
		Table: "movie_platform", IDCols: []string{"movie_id", "platform_id"},
		AttrCols: []string{"availability_date"},
	},
	LinkDistribution: {
		Table: "movie_distribution", IDCols: []string{"movie_id", "studio_id", "platform_id"},
		AttrCols: []string{"distribution_date", "territory"},
	},
	LinkUserFollow: {
		Table: "user_follow", IDCols: []string{"follower_id", "followed_id"},
	},
	LinkContainsEpisode: {
		Table: "contains_episodes", IDCols: []string{"episode_id", "movie_id"},
	},
}

func metaFor(entity Entity) (entityMeta, error) {
	meta, ok := entityMetas[entity]
	if !ok {
		return entityMeta{}, fmt.Errorf("store: unknown entity %q", entity)
	}
	return meta, nil
}

func linkFor(link Link) (linkMeta, error) {
	meta, ok := linkMetas[link]
	if !ok {
		return linkMeta{}, fmt.Errorf("store: unknown link %q", link)
	}
	return meta, nil
}

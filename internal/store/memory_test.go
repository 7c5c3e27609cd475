package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_UserNaturalKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, EntityUser, Fields{
		"username": "alice", "email": "alice@example.com", "password": "pw",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.FindByNaturalKey(ctx, EntityUser, Fields{"username": "alice"})
	if err != nil || got != id {
		t.Errorf("find by username = %d, %v; want %d", got, err, id)
	}
	got, err = m.FindByNaturalKey(ctx, EntityUser, Fields{"email": "alice@example.com"})
	if err != nil || got != id {
		t.Errorf("find by email = %d, %v; want %d", got, err, id)
	}
	if _, err := m.FindByNaturalKey(ctx, EntityUser, Fields{"username": "bob"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("find missing user = %v, want ErrNotFound", err)
	}
}

func TestMemory_TitleNullableDateKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	dated, err := m.Create(ctx, EntityTitle, Fields{
		"movie_name": "Alien", "release_date": "1979-01-01",
	})
	if err != nil {
		t.Fatal(err)
	}
	undated, err := m.Create(ctx, EntityTitle, Fields{"movie_name": "Solaris"})
	if err != nil {
		t.Fatal(err)
	}

	// A key carrying a date matches name and date together.
	got, err := m.FindByNaturalKey(ctx, EntityTitle, Fields{
		"movie_name": "Alien", "release_date": "1979-01-01",
	})
	if err != nil || got != dated {
		t.Errorf("dated key = %d, %v; want %d", got, err, dated)
	}
	if _, err := m.FindByNaturalKey(ctx, EntityTitle, Fields{
		"movie_name": "Alien", "release_date": "1986-01-01",
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong date = %v, want ErrNotFound", err)
	}

	// A key without a date matches on name alone, dated rows included.
	got, err = m.FindByNaturalKey(ctx, EntityTitle, Fields{"movie_name": "Alien"})
	if err != nil || got != dated {
		t.Errorf("name-only key = %d, %v; want %d", got, err, dated)
	}
	got, err = m.FindByNaturalKey(ctx, EntityTitle, Fields{"movie_name": "Solaris"})
	if err != nil || got != undated {
		t.Errorf("undated row = %d, %v; want %d", got, err, undated)
	}
}

func TestMemory_EpisodeKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, EntityEpisode, Fields{
		"movie_id": int64(7), "season_number": 1, "episode_number": 3,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.FindByNaturalKey(ctx, EntityEpisode, Fields{
		"movie_id": int64(7), "season_number": 1, "episode_number": 3,
	})
	if err != nil || got != id {
		t.Errorf("composite key = %d, %v; want %d", got, err, id)
	}

	// Direct identifier probe.
	got, err = m.FindByNaturalKey(ctx, EntityEpisode, Fields{"episode_id": id})
	if err != nil || got != id {
		t.Errorf("id probe = %d, %v; want %d", got, err, id)
	}
	if _, err := m.FindByNaturalKey(ctx, EntityEpisode, Fields{"episode_id": int64(99)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id probe = %v, want ErrNotFound", err)
	}
}

func TestMemory_CreateDropsUnknownColumns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, EntityGenre, Fields{
		"genre_name": "Drama", "bogus": "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	row := m.Row(EntityGenre, id)
	if _, ok := row["bogus"]; ok {
		t.Error("unknown column should not be stored")
	}
	if row["genre_name"] != "Drama" {
		t.Errorf("genre_name = %v", row["genre_name"])
	}
}

func TestMemory_Links(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	exists, err := m.LinkExists(ctx, LinkTitleGenre, []int64{1, 2})
	if err != nil || exists {
		t.Fatalf("LinkExists before create = %v, %v", exists, err)
	}
	if err := m.CreateLink(ctx, LinkTitleGenre, []int64{1, 2}, nil); err != nil {
		t.Fatal(err)
	}
	exists, err = m.LinkExists(ctx, LinkTitleGenre, []int64{1, 2})
	if err != nil || !exists {
		t.Fatalf("LinkExists after create = %v, %v", exists, err)
	}
	if exists, _ := m.LinkExists(ctx, LinkTitleGenre, []int64{2, 1}); exists {
		t.Error("link tuples are ordered; reversed ids must not match")
	}
	if n := m.LinkCount(LinkTitleGenre); n != 1 {
		t.Errorf("LinkCount = %d, want 1", n)
	}
}

func TestMemory_LinkArityValidated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.LinkExists(ctx, LinkDistribution, []int64{1, 2}); err == nil {
		t.Error("three-way link with two ids should error")
	}
	if err := m.CreateLink(ctx, LinkUserFollow, []int64{1, 2, 3}, nil); err == nil {
		t.Error("two-way link with three ids should error")
	}
}

func TestMemory_InjectedFailure(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailOn = map[string]bool{"genres": true}

	_, err := m.Create(ctx, EntityGenre, Fields{"genre_name": "Drama"})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistenceError", err)
	}
	if perr.Op != "create" || perr.Target != "genres" {
		t.Errorf("perr = %s/%s", perr.Op, perr.Target)
	}

	// Other tables stay healthy.
	if _, err := m.Create(ctx, EntityUser, Fields{"username": "a", "password": "p"}); err != nil {
		t.Errorf("unrelated create failed: %v", err)
	}
}

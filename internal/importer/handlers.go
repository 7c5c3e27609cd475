package importer

import (
	"context"
	"errors"
	"strconv"

	"github.com/cinetrack/cinetrack/internal/csvio"
	"github.com/cinetrack/cinetrack/internal/store"
)

// stubPassword is assigned to users fabricated to satisfy a reference from
// a review, follow, or donation row. Preserved for compatibility with
// existing catalog data.
const stubPassword = "changeme"

// setIf adds a column value only when the raw text is non-empty, leaving
// absent fields NULL.
func setIf(f store.Fields, col, val string) {
	if val != "" {
		f[col] = val
	}
}

func importUser(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	username := rec.Get("username", "user")
	if username == "" {
		return OutcomeSkipped, nil
	}
	email := rec.Get("email")
	password := rec.Get("password")
	if password == "" {
		password = stubPassword
	}

	l := im.entityLock(store.EntityUser)
	l.Lock()
	defer l.Unlock()

	if _, err := im.store.FindByNaturalKey(ctx, store.EntityUser, store.Fields{"username": username}); err == nil {
		return OutcomeSkipped, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	if email != "" {
		if _, err := im.store.FindByNaturalKey(ctx, store.EntityUser, store.Fields{"email": email}); err == nil {
			return OutcomeSkipped, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
	}

	fields := store.Fields{"username": username, "password": password}
	setIf(fields, "email", email)
	if _, err := im.store.Create(ctx, store.EntityUser, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importTitle(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	name := rec.Get("title", "movie_name", "name")
	if name == "" {
		return OutcomeSkipped, nil
	}
	date := ParseDate(rec.Get("release_date", "date", "year"))

	key := store.Fields{"movie_name": name}
	setIf(key, "release_date", date)

	l := im.entityLock(store.EntityTitle)
	l.Lock()
	defer l.Unlock()

	if _, err := im.store.FindByNaturalKey(ctx, store.EntityTitle, key); err == nil {
		return OutcomeSkipped, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	fields := store.Fields{"movie_name": name}
	setIf(fields, "release_date", date)
	setIf(fields, "language", rec.Get("language"))
	setIf(fields, "description", rec.Get("description", "summary"))
	if _, err := im.store.Create(ctx, store.EntityTitle, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

// importNamed covers the single-name-key entities: genre, person, studio,
// platform. Direct rows whose natural key already exists are skipped.
func importNamed(ctx context.Context, im *Importer, entity store.Entity, nameCol, name string, fields store.Fields) (Outcome, error) {
	if name == "" {
		return OutcomeSkipped, nil
	}

	l := im.entityLock(entity)
	l.Lock()
	defer l.Unlock()

	if _, err := im.store.FindByNaturalKey(ctx, entity, store.Fields{nameCol: name}); err == nil {
		return OutcomeSkipped, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	fields[nameCol] = name
	if _, err := im.store.Create(ctx, entity, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importGenre(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	name := rec.Get("genre_name", "name", "genre")
	return importNamed(ctx, im, store.EntityGenre, "genre_name", name, store.Fields{})
}

func importPerson(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	name := rec.Get("name", "actor")
	fields := store.Fields{}
	setIf(fields, "dob", ParseDate(rec.Get("dob", "birthdate")))
	setIf(fields, "bio", rec.Get("bio", "biography"))
	if age, err := strconv.Atoi(rec.Get("age")); err == nil {
		fields["age"] = age
	}
	return importNamed(ctx, im, store.EntityPerson, "name", name, fields)
}

func importStudio(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	name := rec.Get("studio_name", "name")
	fields := store.Fields{}
	setIf(fields, "country", rec.Get("country"))
	return importNamed(ctx, im, store.EntityStudio, "studio_name", name, fields)
}

func importPlatform(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	name := rec.Get("platform_name", "name")
	fields := store.Fields{}
	setIf(fields, "subscription_type", rec.Get("subscription_type", "subscription"))
	return importNamed(ctx, im, store.EntityPlatform, "platform_name", name, fields)
}

func importEpisode(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	series := rec.Get("series_title", "title", "movie_name")
	if series == "" {
		return OutcomeSkipped, nil
	}
	season := ParseSeason(rec.Get("season", "season_number"))
	epNum, hasEpNum := ParseEpisodeNumber(rec.Get("episode", "episode_number"))
	date := ParseDate(rec.Get("release_date", "air_date", "date"))

	titleFields := store.Fields{"movie_name": series}
	setIf(titleFields, "release_date", date)
	titleID, err := im.resolveOrCreate(ctx, store.EntityTitle,
		store.Fields{"movie_name": series}, titleFields)
	if err != nil {
		return 0, err
	}

	fields := store.Fields{"movie_id": titleID, "season_number": season}
	setIf(fields, "episode_title", rec.Get("episode_title", "ep_title", "title"))
	setIf(fields, "release_date", date)

	l := im.entityLock(store.EntityEpisode)
	l.Lock()
	defer l.Unlock()

	if hasEpNum {
		key := store.Fields{"movie_id": titleID, "season_number": season, "episode_number": epNum}
		if _, err := im.store.FindByNaturalKey(ctx, store.EntityEpisode, key); err == nil {
			return OutcomeSkipped, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		fields["episode_number"] = epNum
	}

	if _, err := im.store.Create(ctx, store.EntityEpisode, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

// resolveTitleStub resolves a title by name alone, creating a minimal stub
// row when the title has not been seen yet.
func (im *Importer) resolveTitleStub(ctx context.Context, name string) (int64, error) {
	return im.resolveOrCreate(ctx, store.EntityTitle,
		store.Fields{"movie_name": name}, store.Fields{"movie_name": name})
}

// resolveUserStub resolves a user by username, fabricating a placeholder
// account with the default password when absent.
func (im *Importer) resolveUserStub(ctx context.Context, username string) (int64, error) {
	return im.resolveOrCreate(ctx, store.EntityUser,
		store.Fields{"username": username},
		store.Fields{"username": username, "password": stubPassword})
}

func importReview(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	username := rec.Get("username", "user")
	title := rec.Get("title", "movie_name")
	if username == "" || title == "" {
		return OutcomeSkipped, nil
	}

	userID, err := im.resolveUserStub(ctx, username)
	if err != nil {
		return 0, err
	}
	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}

	fields := store.Fields{"user_id": userID, "movie_id": titleID}
	if rating, ok := ParseRating(rec.Get("rating")); ok {
		fields["rating"] = rating
	}
	setIf(fields, "comment", rec.Get("comment", "review"))

	if _, err := im.store.Create(ctx, store.EntityReview, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importTitleGenre(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	title := rec.Get("title", "movie_name")
	genre := rec.Get("genre", "genre_name")
	if title == "" || genre == "" {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}
	genreID, err := im.resolveOrCreate(ctx, store.EntityGenre,
		store.Fields{"genre_name": genre}, store.Fields{"genre_name": genre})
	if err != nil {
		return 0, err
	}

	if err := im.ensureLink(ctx, store.LinkTitleGenre, []int64{titleID, genreID}, nil); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importTitleCast(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	title := rec.Get("title", "movie_name")
	actor := rec.Get("actor", "name")
	if title == "" || actor == "" {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}
	castID, err := im.resolveOrCreate(ctx, store.EntityPerson,
		store.Fields{"name": actor}, store.Fields{"name": actor})
	if err != nil {
		return 0, err
	}

	attrs := store.Fields{}
	setIf(attrs, "role", rec.Get("role"))
	setIf(attrs, "character_name", rec.Get("character_name", "character"))
	if err := im.ensureLink(ctx, store.LinkTitleCast, []int64{titleID, castID}, attrs); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importTitleStudio(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	title := rec.Get("title", "movie_name")
	studio := rec.Get("studio_name", "studio")
	if title == "" || studio == "" {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}
	studioID, err := im.resolveOrCreate(ctx, store.EntityStudio,
		store.Fields{"studio_name": studio}, store.Fields{"studio_name": studio})
	if err != nil {
		return 0, err
	}

	if err := im.ensureLink(ctx, store.LinkTitleStudio, []int64{titleID, studioID}, nil); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importTitlePlatform(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	title := rec.Get("title", "movie_name")
	platform := rec.Get("platform_name", "platform")
	if title == "" || platform == "" {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}
	platformID, err := im.resolveOrCreate(ctx, store.EntityPlatform,
		store.Fields{"platform_name": platform}, store.Fields{"platform_name": platform})
	if err != nil {
		return 0, err
	}

	attrs := store.Fields{}
	setIf(attrs, "availability_date", ParseDate(rec.Get("availability_date", "availability")))
	if err := im.ensureLink(ctx, store.LinkTitlePlatform, []int64{titleID, platformID}, attrs); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importDistribution(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	title := rec.Get("title", "movie_name")
	studio := rec.Get("studio_name", "studio")
	platform := rec.Get("platform_name", "platform")
	if title == "" || studio == "" || platform == "" {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}
	studioID, err := im.resolveOrCreate(ctx, store.EntityStudio,
		store.Fields{"studio_name": studio}, store.Fields{"studio_name": studio})
	if err != nil {
		return 0, err
	}
	platformID, err := im.resolveOrCreate(ctx, store.EntityPlatform,
		store.Fields{"platform_name": platform}, store.Fields{"platform_name": platform})
	if err != nil {
		return 0, err
	}

	territory := rec.Get("territory", "region")
	if territory == "" {
		territory = "worldwide"
	}
	attrs := store.Fields{"territory": territory}
	setIf(attrs, "distribution_date", ParseDate(rec.Get("distribution_date", "date")))

	if err := im.ensureLink(ctx, store.LinkDistribution,
		[]int64{titleID, studioID, platformID}, attrs); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importFollow(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	follower := rec.Get("follower", "follower_username", "follower_id")
	followed := rec.Get("followed", "followed_username", "followed_id")
	if follower == "" || followed == "" {
		return OutcomeSkipped, nil
	}

	followerID, err := im.resolveUserRef(ctx, follower)
	if err != nil {
		return 0, err
	}
	followedID, err := im.resolveUserRef(ctx, followed)
	if err != nil {
		return 0, err
	}
	if followerID == followedID {
		// Self-follow is a business-rule no-op.
		return OutcomeSkipped, nil
	}

	if err := im.ensureLink(ctx, store.LinkUserFollow, []int64{followerID, followedID}, nil); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

// resolveUserRef resolves a user reference that may be either a numeric
// identifier or a username.
func (im *Importer) resolveUserRef(ctx context.Context, ref string) (int64, error) {
	if isDigits(ref) {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err == nil {
			return id, nil
		}
	}
	return im.resolveUserStub(ctx, ref)
}

func importDonation(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	username := rec.Get("username", "user", "user_id")
	if username == "" {
		return OutcomeSkipped, nil
	}

	userID, err := im.resolveUserStub(ctx, username)
	if err != nil {
		return 0, err
	}

	fields := store.Fields{
		"user_id":         userID,
		"donation_amount": ParseAmount(rec.Get("donation_amount", "amount")),
	}
	setIf(fields, "comment", rec.Get("comment"))

	if _, err := im.store.Create(ctx, store.EntityDonation, fields); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

func importContainsEpisode(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error) {
	rawEpisodeID := rec.Get("episode_id", "episode")
	title := rec.Get("title", "movie_name")
	if rawEpisodeID == "" || title == "" {
		return OutcomeSkipped, nil
	}
	episodeID, err := strconv.ParseInt(rawEpisodeID, 10, 64)
	if err != nil {
		return OutcomeSkipped, nil
	}

	titleID, err := im.resolveTitleStub(ctx, title)
	if err != nil {
		return 0, err
	}

	// A link may not point at an episode that does not exist.
	if _, err := im.store.FindByNaturalKey(ctx, store.EntityEpisode,
		store.Fields{"episode_id": episodeID}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return OutcomeSkipped, nil
		}
		return 0, err
	}

	if err := im.ensureLink(ctx, store.LinkContainsEpisode, []int64{episodeID, titleID}, nil); err != nil {
		return 0, err
	}
	return OutcomeInserted, nil
}

package importer

import (
	"context"
	"strings"

	"github.com/cinetrack/cinetrack/internal/csvio"
)

// kindTags maps every recognized type tag (lower-cased) to its record kind.
// The tag vocabulary is part of the wire contract with existing data
// exports and must be preserved exactly.
var kindTags = map[string]Kind{
	"user":                KindUser,
	"users":               KindUser,
	"movie":               KindTitle,
	"movies":              KindTitle,
	"genre":               KindGenre,
	"genres":              KindGenre,
	"cast":                KindPerson,
	"cast_member":         KindPerson,
	"cast_members":        KindPerson,
	"studio":              KindStudio,
	"studios":             KindStudio,
	"platform":            KindPlatform,
	"streaming_platform":  KindPlatform,
	"streaming_platforms": KindPlatform,
	"episode":             KindEpisode,
	"episodes":            KindEpisode,
	"review":              KindReview,
	"reviews":             KindReview,
	"rating":              KindReview,
	"ratings":             KindReview,
	"movie_genre":         KindTitleGenre,
	"movie_cast":          KindTitleCast,
	"movie_studio":        KindTitleStudio,
	"movie_platform":      KindTitlePlatform,
	"distribution":        KindDistribution,
	"movie_distribution":  KindDistribution,
	"follow":              KindFollow,
	"user_follow":         KindFollow,
	"donation":            KindDonation,
	"donations":           KindDonation,
	"contains_episode":    KindContainsEpisode,
}

// handlerFunc processes one record of its kind. A returned error counts the
// record as failed; otherwise the Outcome decides inserted vs skipped.
type handlerFunc func(ctx context.Context, im *Importer, rec csvio.Record) (Outcome, error)

var kindHandlers = map[Kind]handlerFunc{
	KindUser:            importUser,
	KindTitle:           importTitle,
	KindGenre:           importGenre,
	KindPerson:          importPerson,
	KindStudio:          importStudio,
	KindPlatform:        importPlatform,
	KindEpisode:         importEpisode,
	KindReview:          importReview,
	KindTitleGenre:      importTitleGenre,
	KindTitleCast:       importTitleCast,
	KindTitleStudio:     importTitleStudio,
	KindTitlePlatform:   importTitlePlatform,
	KindDistribution:    importDistribution,
	KindFollow:          importFollow,
	KindDonation:        importDonation,
	KindContainsEpisode: importContainsEpisode,
}

// dispatch reads the record's type tag and selects its handler.
// Unknown or empty tags return ok=false; such records are skipped.
func dispatch(rec csvio.Record) (tag string, h handlerFunc, ok bool) {
	tag = strings.ToLower(strings.TrimSpace(rec.Get("type", "record_type")))
	kind, found := kindTags[tag]
	if !found {
		return tag, nil, false
	}
	return tag, kindHandlers[kind], true
}

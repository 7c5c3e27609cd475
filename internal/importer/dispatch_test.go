package importer

import "testing"

func TestDispatchTags(t *testing.T) {
	known := []struct {
		tag  string
		kind Kind
	}{
		{"user", KindUser},
		{"users", KindUser},
		{"movie", KindTitle},
		{"movies", KindTitle},
		{"genre", KindGenre},
		{"genres", KindGenre},
		{"cast", KindPerson},
		{"cast_member", KindPerson},
		{"cast_members", KindPerson},
		{"studio", KindStudio},
		{"studios", KindStudio},
		{"platform", KindPlatform},
		{"streaming_platform", KindPlatform},
		{"streaming_platforms", KindPlatform},
		{"episode", KindEpisode},
		{"episodes", KindEpisode},
		{"review", KindReview},
		{"reviews", KindReview},
		{"rating", KindReview},
		{"ratings", KindReview},
		{"movie_genre", KindTitleGenre},
		{"movie_cast", KindTitleCast},
		{"movie_studio", KindTitleStudio},
		{"movie_platform", KindTitlePlatform},
		{"distribution", KindDistribution},
		{"movie_distribution", KindDistribution},
		{"follow", KindFollow},
		{"user_follow", KindFollow},
		{"donation", KindDonation},
		{"donations", KindDonation},
		{"contains_episode", KindContainsEpisode},
	}

	for _, tt := range known {
		if got, ok := kindTags[tt.tag]; !ok || got != tt.kind {
			t.Errorf("kindTags[%q] = %v, %v; want %v", tt.tag, got, ok, tt.kind)
		}
		if _, ok := kindHandlers[tt.kind]; !ok {
			t.Errorf("kind %v has no handler", tt.kind)
		}
	}
}

func TestDispatchUnknown(t *testing.T) {
	for _, tag := range []string{"", "spaceship", "movie "} {
		if _, ok := kindTags[tag]; ok {
			t.Errorf("kindTags[%q] should be unknown", tag)
		}
	}
}

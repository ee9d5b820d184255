package textutil_test

import (
	"testing"

	"karaoke/internal/textutil"
)

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/media/never_gonna_give_you_up.mp4", "Never Gonna Give You Up"},
		{"song.mp4", "Song"},
		{"my.favorite-track.mkv", "My Favorite Track"},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := textutil.DisplayTitle(tc.path); got != tc.want {
			t.Errorf("DisplayTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

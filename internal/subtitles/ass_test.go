package subtitles_test

import (
	"strings"
	"testing"

	"karaoke/internal/subtitles"
)

func styleOptions() subtitles.StyleOptions {
	return subtitles.StyleOptions{
		PlayResX:    1280,
		PlayResY:    720,
		Font:        "KG",
		FontSize:    40,
		TextColor:   "#FFFFFF",
		StrokeColor: "#000000",
		StrokeWidth: 0.5,
		TextWidth:   1200,
	}
}

func TestRenderASSStyleSelection(t *testing.T) {
	segments := []subtitles.Segment{
		{Start: 0, End: 4, Text: "hello world"},
		{Start: 4, End: 9, Text: " Instrumental "},
	}
	content, err := subtitles.RenderASS(segments, styleOptions())
	if err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	if !strings.Contains(content, "Dialogue: 0,0:00:00.00,0:00:04.00,Lyric,,0,0,0,,hello world") {
		t.Errorf("lyric cue not rendered with Lyric style:\n%s", content)
	}
	if !strings.Contains(content, "Dialogue: 0,0:00:04.00,0:00:09.00,Instrumental,,0,0,0,,Instrumental") {
		t.Errorf("sentinel cue not rendered with Instrumental style:\n%s", content)
	}
}

func TestRenderASSStyles(t *testing.T) {
	content, err := subtitles.RenderASS(nil, styleOptions())
	if err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	// #FFFFFF converts to &HFFFFFF& in ASS BGR order, centered alignment 5,
	// margins (1280-1200)/2 = 40 on each side.
	if !strings.Contains(content, "Style: Lyric,KG,40,&HFFFFFF&,&H000000&,&H000000&,0,0,1,0.5,0,5,40,40,0") {
		t.Errorf("unexpected Lyric style line:\n%s", content)
	}
	// Instrumental style is three quarters the size with dimmed fill.
	if !strings.Contains(content, "Style: Instrumental,KG,30,&HB2B2B2&,&H000000&") {
		t.Errorf("unexpected Instrumental style line:\n%s", content)
	}
}

func TestRenderASSColorOrder(t *testing.T) {
	opts := styleOptions()
	opts.TextColor = "#112233"
	content, err := subtitles.RenderASS(nil, opts)
	if err != nil {
		t.Fatalf("RenderASS: %v", err)
	}
	if !strings.Contains(content, "&H332211&") {
		t.Errorf("expected BGR conversion of #112233:\n%s", content)
	}
}

func TestRenderASSRejectsBadColor(t *testing.T) {
	opts := styleOptions()
	opts.TextColor = "white"
	if _, err := subtitles.RenderASS(nil, opts); err == nil {
		t.Fatal("expected error for malformed color")
	}
}

func TestIsInstrumental(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"instrumental", true},
		{"INSTRUMENTAL", true},
		{"  Instrumental\n", true},
		{"instrumental break", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := subtitles.IsInstrumental(tc.text); got != tc.want {
			t.Errorf("IsInstrumental(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

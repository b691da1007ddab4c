package cmd

import (
	"testing"
	"time"

	"github.com/jfmyers9/yamp/internal/playback"
	"github.com/mattn/go-runewidth"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "cyrillic is one column per letter",
			input:    "Кино - Кукушка",
			width:    16,
			expected: "Кино - Кукушка  ",
		},
		{
			name:     "truncate cyrillic text",
			input:    "Земфира - Хочешь?",
			width:    12,
			expected: "Земфира -...",
		},
		{
			name:     "truncate wide text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ",
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
		{
			name:     "width below ellipsis",
			input:    "Hello",
			width:    2,
			expected: "..",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				if w := runewidth.StringWidth(result); w != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, w, tt.width)
				}
			}
		})
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		speed    int
		at       int64
		expected string
	}{
		{"fits is static", "Short", 10, 2, 7, "Short     "},
		{"starts at the beginning", "abcdefgh", 4, 1, 0, "abcd"},
		{"advances with time", "abcdefgh", 4, 1, 3, "defg"},
		{"speed multiplies", "abcdefgh", 4, 2, 2, "efgh"},
		{"wraps through separator", "abcdefgh", 4, 1, 7, "h | "},
		{"loops", "abcdefgh", 4, 1, 11, "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := marqueeText(tt.text, tt.width, tt.speed, " | ", time.Unix(tt.at, 0))
			if got != tt.expected {
				t.Errorf("marqueeText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNowPlaying(t *testing.T) {
	info := []playback.TrackInfo{
		{ID: "1", Title: "Кукушка", Artists: "Кино"},
		{ID: "2", Title: "Группа крови", Artists: "Кино"},
	}

	tests := []struct {
		name      string
		view      playback.View
		wantOK    bool
		wantTitle string
	}{
		{
			name:   "paused",
			view:   playback.View{TrackList: []string{"1"}, FullTrackInfo: info[:1]},
			wantOK: false,
		},
		{
			name:   "nothing loaded",
			view:   playback.View{IsPlaying: true},
			wantOK: false,
		},
		{
			name:      "playing with metadata",
			view:      playback.View{IsPlaying: true, CurrentIndex: 1, TrackList: []string{"1", "2"}, FullTrackInfo: info},
			wantOK:    true,
			wantTitle: "Группа крови",
		},
		{
			name:      "playing after restart without metadata",
			view:      playback.View{IsPlaying: true, TrackList: []string{"77"}},
			wantOK:    true,
			wantTitle: "Track 77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np, ok := nowPlaying(tt.view)
			if ok != tt.wantOK {
				t.Fatalf("nowPlaying() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && np.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", np.Title, tt.wantTitle)
			}
		})
	}
}

func TestFormatTrack(t *testing.T) {
	np := NowPlaying{Title: "Кукушка", Artists: "Кино", Index: 0, Total: 12}

	got, err := formatTrack(np, "{{.Artists}} - {{.Title}} [{{.Index}}/{{.Total}}]")
	if err != nil {
		t.Fatalf("formatTrack() error: %v", err)
	}
	if want := "Кино - Кукушка [0/12]"; got != want {
		t.Errorf("formatTrack() = %q, want %q", got, want)
	}

	if _, err := formatTrack(np, "{{.Missing"); err == nil {
		t.Error("expected error for invalid template")
	}
}

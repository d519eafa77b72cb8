package resolver

import "testing"

func TestTransliterate(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://x.test/uploads/café.jpg":              "https://x.test/uploads/cafe.jpg",
		"https://x.test/uploads/caf%C3%A9-300x200.jpg": "https://x.test/uploads/cafe-300x200.jpg",
		"https://x.test/uploads/plain.png":             "https://x.test/uploads/plain.png",
		"https://x.test/é/Ünïcödé.png?ver=2":           "https://x.test/é/Unicode.png?ver=2",
		"https://x.test/uploads/naïve%20file.jpg":      "https://x.test/uploads/naive%20file.jpg",
	}
	for in, want := range tests {
		if got := Transliterate(in); got != want {
			t.Fatalf("Transliterate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeURL(t *testing.T) {
	t.Parallel()

	if got := EncodeURL("https://x.test/uploads/café.jpg"); got != "https://x.test/uploads/caf%C3%A9.jpg" {
		t.Fatalf("unexpected encoding: %s", got)
	}
	if got := EncodeURL("https://x.test/uploads/caf%C3%A9.jpg"); got != "https://x.test/uploads/caf%C3%A9.jpg" {
		t.Fatalf("encoded url changed: %s", got)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	if got := fileName("https://x.test/a/caf%C3%A9.jpg?x=1"); got != "café.jpg" {
		t.Fatalf("unexpected file name: %s", got)
	}
}

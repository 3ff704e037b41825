package util

import (
	"encoding/base64"
	"testing"
	"unicode/utf8"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"no fences", "no fences"},
	}
	for _, tt := range tests {
		if got := StripCodeFences(tt.in); got != tt.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEllipsize(t *testing.T) {
	if got := Ellipsize("short", 10); got != "short" {
		t.Errorf("Ellipsize(short) = %q", got)
	}
	got := Ellipsize("гемоглобин в норме, лейкоциты повышены", 20)
	if n := utf8.RuneCountInString(got); n > 20 {
		t.Errorf("Ellipsize() rune count = %d, want <= 20", n)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("Ellipsize() = %q, want ... suffix", got)
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}
	enc := base64.StdEncoding.EncodeToString(payload)

	b, hint, err := DecodeBase64MaybeDataURL("data:image/png;base64," + enc)
	if err != nil {
		t.Fatalf("DecodeBase64MaybeDataURL() error = %v", err)
	}
	if hint != "image/png" {
		t.Errorf("hint = %q, want image/png", hint)
	}
	if got := PickMIME("", "", b); got != "image/png" {
		t.Errorf("PickMIME() = %q, want image/png", got)
	}
	if _, _, err := DecodeBase64MaybeDataURL("%%%"); err == nil {
		t.Error("DecodeBase64MaybeDataURL(garbage) error = nil")
	}
}

func TestSniffMimeHTTP(t *testing.T) {
	tests := map[string][]byte{
		"image/jpeg": {0xFF, 0xD8, 0xFF, 0xE0},
		"image/gif":  []byte("GIF89a...."),
		"image/webp": []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
		"image/bmp":  []byte("BM\x00\x00"),
	}
	for want, b := range tests {
		if got := SniffMimeHTTP(b); got != want {
			t.Errorf("SniffMimeHTTP(%q) = %q, want %q", b, got, want)
		}
	}
}

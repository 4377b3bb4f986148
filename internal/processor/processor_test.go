package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestArticleIDDeterministicAndDistinct(t *testing.T) {
	url1 := "https://nation.africa/news/a"
	url2 := "https://nation.africa/news/b"

	if ArticleID(url1) != ArticleID(url1) {
		t.Fatalf("ArticleID not deterministic")
	}
	if ArticleID(url1) == ArticleID(url2) {
		t.Fatalf("ArticleID should differ for different URLs")
	}
	if len(ArticleID(url1)) != 40 {
		t.Fatalf("ArticleID should be 40 hex chars: %q", ArticleID(url1))
	}
}

func TestFingerprintDeterministicAcrossCaseAndWhitespace(t *testing.T) {
	pub := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	a := Fingerprint("Daily Nation", "Kenya to Host Major Climate Summit", pub)
	b := Fingerprint("daily nation", "  kenya TO host   major climate summit ", pub)
	c := Fingerprint("Daily Nation", "Kenya to Host Major Climate Summit", pub)
	if a == nil || b == nil || c == nil {
		t.Fatalf("fingerprint should not be nil")
	}
	if *a != *b || *a != *c {
		t.Fatalf("fingerprints differ: %s %s %s", *a, *b, *c)
	}

	want := sha1Hex("daily nation|kenya to host major climate summit|2026-10-19")
	if *a != want {
		t.Fatalf("fingerprint = %s, want %s", *a, want)
	}
}

func TestFingerprintUsesUTCDateOnly(t *testing.T) {
	morning := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	if *Fingerprint("The Star", "Same", morning) != *Fingerprint("The Star", "Same", evening) {
		t.Fatalf("fingerprint should only depend on the date")
	}
	nextDay := evening.Add(2 * time.Hour)
	if *Fingerprint("The Star", "Same", evening) == *Fingerprint("The Star", "Same", nextDay) {
		t.Fatalf("fingerprint should change with the date")
	}
}

func TestFingerprintZeroDate(t *testing.T) {
	fp := Fingerprint("The Star", "Title", time.Time{})
	if fp == nil {
		t.Fatalf("fingerprint should be computed without a date")
	}
	if *fp != sha1Hex("the star|title|") {
		t.Fatalf("unexpected fingerprint for empty date: %s", *fp)
	}
}

func TestFingerprintNullable(t *testing.T) {
	pub := time.Now()
	cases := []struct{ source, title string }{
		{"", "Title"},
		{"   ", "Title"},
		{"Daily Nation", ""},
		{"Daily Nation", "  <p> </p> "},
	}
	for _, c := range cases {
		if fp := Fingerprint(c.source, c.title, pub); fp != nil {
			t.Fatalf("Fingerprint(%q, %q) = %s, want nil", c.source, c.title, *fp)
		}
	}
}

func TestQualityScoreTiers(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		titleLen int
		descLen  int
		image    bool
		age      time.Duration
		zeroDate bool
		want     int
	}{
		{name: "empty", zeroDate: true, want: 0},
		{name: "max", titleLen: 45, descLen: 250, image: true, age: time.Hour, want: 100},
		{name: "scenario", titleLen: 34, descLen: 120, image: true, age: 3 * time.Hour, want: 80},
		{name: "short title", titleLen: 19, descLen: 49, age: 100 * time.Hour, want: 0},
		{name: "medium", titleLen: 20, descLen: 50, age: 48 * time.Hour, want: 10 + 10 + 10},
		{name: "boundary 24h", titleLen: 40, descLen: 100, age: 24 * time.Hour, want: 20 + 20 + 30},
		{name: "boundary 72h", titleLen: 40, descLen: 200, age: 72 * time.Hour, want: 20 + 30 + 10},
		{name: "old", titleLen: 40, descLen: 200, image: true, age: 73 * time.Hour, want: 70},
	}

	for _, c := range cases {
		pub := now.Add(-c.age)
		if c.zeroDate {
			pub = time.Time{}
		}
		got := QualityScore(strings.Repeat("t", c.titleLen), strings.Repeat("d", c.descLen), c.image, pub, now)
		if got != c.want {
			t.Fatalf("%s: QualityScore = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestQualityScoreBounds(t *testing.T) {
	now := time.Now()
	for titleLen := 0; titleLen <= 60; titleLen += 7 {
		for descLen := 0; descLen <= 400; descLen += 33 {
			for _, img := range []bool{true, false} {
				for _, age := range []time.Duration{-time.Hour, 0, time.Hour, 30 * time.Hour, 100 * time.Hour} {
					s := QualityScore(strings.Repeat("a", titleLen), strings.Repeat("b", descLen), img, now.Add(-age), now)
					if s < 0 || s > MaxQualityScore {
						t.Fatalf("score out of bounds: %d", s)
					}
				}
			}
		}
	}
}

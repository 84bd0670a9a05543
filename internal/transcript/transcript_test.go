package transcript

import (
	"context"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/whisperlive/whisperlive/internal/asr"
)

func TestBuildDocument(t *testing.T) {
	segs := []asr.Segment{
		{Text: "good", Start: 0, End: 0.8},
		{Text: "morning", Start: 0.8, End: 1.6, Speaker: "speaker_1"},
	}
	doc := BuildDocument(segs, "en")

	if doc.Language != "en" {
		t.Errorf("language = %q", doc.Language)
	}
	if doc.Text != "good morning" {
		t.Errorf("text = %q", doc.Text)
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("got %d segments", len(doc.Segments))
	}
	for i, seg := range doc.Segments {
		if seg.ID != i {
			t.Errorf("segment %d id = %d", i, seg.ID)
		}
	}
	if doc.Segments[1].Speaker != "speaker_1" {
		t.Errorf("speaker = %q", doc.Segments[1].Speaker)
	}
}

func TestObjectKeys(t *testing.T) {
	cases := []struct {
		sessionID string
		object    string
		want      string
	}{
		{"", "meeting.wav", "meeting.json"},
		{"sess-1", "meeting.wav", "sess-1/meeting.json"},
		{"sess-1", "uploads/deep/call.mp3", "sess-1/call.json"},
		{"", "noext", "noext.json"},
	}
	for _, tc := range cases {
		if got := ObjectKey(tc.sessionID, tc.object); got != tc.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tc.sessionID, tc.object, got, tc.want)
		}
	}

	if got := SessionKey("abc"); got != "abc.json" {
		t.Errorf("SessionKey = %q", got)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	store := NewStoreFromBucket(bucket)

	doc := &Document{
		Segments: []Segment{{ID: 0, Start: 0, End: 2, Text: "saved"}},
		Language: "ko",
		Text:     "saved",
	}
	if err := store.Save(ctx, "a/b.json", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := store.Exists(ctx, "a/b.json")
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}

	got, err := store.Load(ctx, "a/b.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Text != "saved" || got.Language != "ko" || len(got.Segments) != 1 {
		t.Errorf("loaded doc = %+v", got)
	}

	_, err = store.Load(ctx, "missing.json")
	if err == nil {
		t.Fatal("load of missing key succeeded")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

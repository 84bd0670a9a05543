package transcript

import (
	"path"
	"strings"

	"github.com/whisperlive/whisperlive/internal/asr"
)

// Segment is one timed span of a stored transcript.
type Segment struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Document is the persisted form of a finished transcription.
type Document struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Text     string    `json:"text"`
}

// BuildDocument assembles a document from recognizer segments, assigning
// ids in order and joining the text.
func BuildDocument(segs []asr.Segment, language string) *Document {
	doc := &Document{Language: language, Segments: make([]Segment, 0, len(segs))}
	parts := make([]string, 0, len(segs))
	for i, s := range segs {
		doc.Segments = append(doc.Segments, Segment{
			ID:      i,
			Start:   s.Start,
			End:     s.End,
			Text:    s.Text,
			Speaker: s.Speaker,
		})
		parts = append(parts, s.Text)
	}
	doc.Text = strings.Join(parts, " ")
	return doc
}

// SessionKey is the object key for a live session's transcript.
func SessionKey(sessionID string) string {
	return sessionID + ".json"
}

// ObjectKey is the object key for a batch transcript. Results are grouped
// under the session id when one was supplied.
func ObjectKey(sessionID, objectName string) string {
	base := path.Base(objectName)
	base = strings.TrimSuffix(base, path.Ext(base)) + ".json"
	if sessionID == "" {
		return base
	}
	return sessionID + "/" + base
}

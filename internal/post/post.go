package post

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/unicode/norm"
)

// isoLayout matches JavaScript's Date.prototype.toISOString output.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Post is a blog post as held by the client.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	UpdatedDate Timestamp `json:"updatedDate"`
}

// Record returns the remote value shape of the post (everything but the id).
func (p Post) Record() Record {
	return Record{Title: p.Title, Body: p.Body, UpdatedDate: p.UpdatedDate}
}

// Normalized returns a copy with title and body in Unicode NFC form.
func (p Post) Normalized() Post {
	p.Title = norm.NFC.String(p.Title)
	p.Body = norm.NFC.String(p.Body)
	return p
}

// Draft is the user input for a post that does not exist remotely yet.
type Draft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Normalized returns a copy with title and body in Unicode NFC form.
func (d Draft) Normalized() Draft {
	return Draft{Title: norm.NFC.String(d.Title), Body: norm.NFC.String(d.Body)}
}

// Record is a post value as stored remotely, keyed by its id.
type Record struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	UpdatedDate Timestamp `json:"updatedDate"`
}

// WithID attaches the remote key to a record.
func (r Record) WithID(id string) Post {
	return Post{ID: id, Title: r.Title, Body: r.Body, UpdatedDate: r.UpdatedDate}
}

// Timestamp is a point in time with millisecond precision.
//
// It encodes as an ISO-8601 UTC string and decodes from either a string or a
// number of epoch milliseconds.
type Timestamp struct {
	time.Time
}

// Stamp truncates t to milliseconds so the value survives a round trip
// through the wire format unchanged.
func Stamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// FromMillis builds a Timestamp from epoch milliseconds.
func FromMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms).UTC()}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(isoLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var ms json.Number
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	n, err := ms.Int64()
	if err != nil {
		f, ferr := ms.Float64()
		if ferr != nil {
			return fmt.Errorf("timestamp %s: %w", ms, err)
		}
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("timestamp %s: out of range", ms)
		}
		n = int64(f)
	}
	*t = FromMillis(n)
	return nil
}

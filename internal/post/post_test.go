package post

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCollection_InjectsKeysInOrder(t *testing.T) {
	data := []byte(`{"a1":{"title":"T","body":"B","updatedDate":0},"a2":{"title":"T2","body":"B2","updatedDate":"2024-01-02T03:04:05.000Z"}}`)

	posts, err := DecodeCollection(data)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, Post{ID: "a1", Title: "T", Body: "B", UpdatedDate: FromMillis(0)}, posts[0])
	assert.Equal(t, "a2", posts[1].ID)
	assert.Equal(t, "T2", posts[1].Title)
	assert.Equal(t, "B2", posts[1].Body)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), posts[1].UpdatedDate.Time)
}

func TestDecodeCollection_PreservesDocumentOrder(t *testing.T) {
	data := []byte(`{"zz":{"title":"z"},"aa":{"title":"a"},"mm":{"title":"m"}}`)

	posts, err := DecodeCollection(data)
	require.NoError(t, err)

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"zz", "aa", "mm"}, ids)
}

func TestDecodeCollection_Null(t *testing.T) {
	posts, err := DecodeCollection([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestDecodeCollection_EmptyObject(t *testing.T) {
	posts, err := DecodeCollection([]byte("{}"))
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDecodeCollection_Malformed(t *testing.T) {
	cases := map[string]string{
		"array":        `[{"title":"x"}]`,
		"truncated":    `{"a1":{"title":"x"}`,
		"bad record":   `{"a1":"not an object"}`,
		"bad date":     `{"a1":{"updatedDate":"yesterday"}}`,
		"duplicate id": `{"a1":{},"a1":{}}`,
		"empty input":  ``,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCollection([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestTimestamp_MarshalISO(t *testing.T) {
	ts := Stamp(time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("X", 3600)))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-06T06:08:09.123Z"`, string(data))
}

func TestTimestamp_StampSurvivesWire(t *testing.T) {
	ts := Stamp(time.Date(2024, 5, 6, 7, 8, 9, 987654321, time.UTC))

	data, err := json.Marshal(ts)
	require.NoError(t, err)

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ts, back)
}

func TestTimestamp_UnmarshalForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{"epoch millis", `1700000000000`, time.UnixMilli(1700000000000).UTC()},
		{"zero", `0`, time.UnixMilli(0).UTC()},
		{"float millis", `1500.0`, time.UnixMilli(1500).UTC()},
		{"iso", `"2021-03-04T05:06:07.890Z"`, time.Date(2021, 3, 4, 5, 6, 7, 890000000, time.UTC)},
		{"rfc3339 offset", `"2021-03-04T06:06:07+01:00"`, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"null", `null`, time.Time{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.in), &ts))
			assert.True(t, tc.want.Equal(ts.Time), "got %v want %v", ts.Time, tc.want)
		})
	}
}

func TestTimestamp_UnmarshalOutOfRange(t *testing.T) {
	for _, in := range []string{`1e300`, `-1e300`, `9223372036854775808.0`} {
		t.Run(in, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(in), &ts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestRecord_OmitsID(t *testing.T) {
	p := Post{ID: "k1", Title: "T", Body: "B", UpdatedDate: FromMillis(0)}

	data, err := json.Marshal(p.Record())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","body":"B","updatedDate":"1970-01-01T00:00:00.000Z"}`, string(data))
	assert.Equal(t, p, p.Record().WithID("k1"))
}

func TestNormalized_NFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	d := Draft{Title: decomposed, Body: decomposed}.Normalized()
	assert.Equal(t, "Caf\u00e9", d.Title)
	assert.Equal(t, "Caf\u00e9", d.Body)

	p := Post{ID: "x", Title: decomposed}.Normalized()
	assert.Equal(t, "Caf\u00e9", p.Title)
	assert.Equal(t, "x", p.ID)
}

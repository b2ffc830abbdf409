package metacpan

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	info, err := Describe(KindAuthor)
	require.NoError(t, err)

	rec, err := newRecord(info, []byte(`{"pauseid":"ETHER","name":"Karen Etheridge","email":"ether@cpan.org","website":["http://a","http://b"]}`), "")
	require.NoError(t, err)
	assert.Equal(t, KindAuthor, rec.Kind)
	assert.Equal(t, "ETHER", rec.ID)

	a := rec.Author()
	require.NotNil(t, a)
	assert.Equal(t, StringList{"ether@cpan.org"}, a.Email)
	assert.Equal(t, StringList{"http://a", "http://b"}, a.Website)
	assert.Nil(t, rec.Release())
	assert.Same(t, a, rec.View())

	var raw map[string]any
	require.NoError(t, rec.Decode(&raw))
	assert.Equal(t, "Karen Etheridge", raw["name"])
}

func TestNewRecord_NumericID(t *testing.T) {
	info, err := Describe(KindRating)
	require.NoError(t, err)

	rec, err := newRecord(info, []byte(`{"id": 42, "rating": 4.5, "distribution": "Moo"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)
	assert.InDelta(t, 4.5, rec.Rating().Rating, 0.001)
}

func TestNewRecord_Errors(t *testing.T) {
	info, err := Describe(KindAuthor)
	require.NoError(t, err)

	tests := []struct {
		name     string
		source   string
		fallback string
	}{
		{name: "empty", source: ""},
		{name: "not an object", source: `["ETHER"]`},
		{name: "null", source: `null`},
		{name: "invalid json", source: `{"pauseid":`},
		{name: "non-scalar id", source: `{"pauseid":{"x":1}}`},
		{name: "missing id", source: `{"name":"Nobody"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRecord(info, []byte(tt.source), tt.fallback)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode), "error %v is not ErrDecode", err)
		})
	}
}

func TestNewRecord_TolerantView(t *testing.T) {
	info, err := Describe(KindRelease)
	require.NoError(t, err)

	rec, err := newRecord(info, []byte(`{"name":"Acme-Old-0.01","distribution":"Acme-Old","version":0.01,"authorized":"yes","dependency":[{"module":"perl","version":5.006}]}`), "")
	require.NoError(t, err)
	assert.Equal(t, "Acme-Old-0.01", rec.ID)

	rel := rec.Release()
	require.NotNil(t, rel)
	assert.Equal(t, Version("0.01"), rel.Version)
	assert.Equal(t, "Acme-Old", rel.Distribution)
	assert.False(t, rel.Authorized)
	require.Len(t, rel.Dependencies, 1)
	assert.Equal(t, Version("5.006"), rel.Dependencies[0].Version)

	// The source document is kept as sent.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Source, &raw))
	assert.Equal(t, "yes", raw["authorized"])

	info, err = Describe(KindAuthor)
	require.NoError(t, err)
	rec, err = newRecord(info, []byte(`{"pauseid":"ETHER","name":7,"email":{"x":1},"city":"Portland"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "ETHER", rec.ID)
	assert.Empty(t, rec.Author().Name)
	assert.Nil(t, rec.Author().Email)
	assert.Equal(t, "Portland", rec.Author().City)
}

func TestVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: `"1.002003"`, want: "1.002003"},
		{input: `"v1.2.3"`, want: "v1.2.3"},
		{input: `0.01`, want: "0.01"},
		{input: `1.10`, want: "1.10"},
		{input: `2`, want: "2"},
		{input: `null`, want: ""},
		{input: `["1.0"]`, wantErr: true},
		{input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v Version
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestNewRecord_FallbackID(t *testing.T) {
	info, err := Describe(KindModule)
	require.NoError(t, err)

	rec, err := newRecord(info, []byte(`{"name":"Role.pm","module":[{"name":"Moo::Role"}]}`), "Moo::Role")
	require.NoError(t, err)
	assert.Equal(t, "Moo::Role", rec.ID)
	require.Len(t, rec.Module().Packages, 1)
}

func TestStringList(t *testing.T) {
	var got struct {
		L StringList `json:"l"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"l":null}`), &got))
	assert.Nil(t, got.L)

	require.Error(t, json.Unmarshal([]byte(`{"l":42}`), &got))
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 5, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input Timestamp
		want  time.Time
	}{
		{name: "backend format", input: "2024-03-05T12:30:00", want: want},
		{name: "rfc3339", input: "2024-03-05T12:30:00Z", want: want},
		{name: "space separated", input: "2024-03-05 12:30:00", want: want},
		{name: "date only", input: "2024-03-05", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Time()
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "Time() = %v, want %v", got, tt.want)
		})
	}

	_, err := Timestamp("yesterday").Time()
	assert.Error(t, err)
}

func TestRecord_Date(t *testing.T) {
	tests := []struct {
		kind   Kind
		source string
		want   Timestamp
	}{
		{KindAuthor, `{"pauseid":"ETHER","updated":"2023-01-02T03:04:05"}`, "2023-01-02T03:04:05"},
		{KindRelease, `{"name":"Moo-2.0","date":"2024-05-06T07:08:09"}`, "2024-05-06T07:08:09"},
		{KindFavorite, `{"id":"f1"}`, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			info, err := Describe(tt.kind)
			require.NoError(t, err)
			rec, err := newRecord(info, []byte(tt.source), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Date())
		})
	}
}

package metacpan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Record is a single entity returned by the backend. Records are
// immutable after construction.
type Record struct {
	// Kind is the entity kind of the record.
	Kind Kind

	// ID is the value of the kind's identifying field.
	ID string

	// Source is the raw JSON document.
	Source json.RawMessage

	view any
}

// NewRecord decodes a source document of the given kind into a record.
// The identifier is read from the kind's ID field.
func NewRecord(kind Kind, source []byte) (*Record, error) {
	info, err := Describe(kind)
	if err != nil {
		return nil, err
	}
	return newRecord(info, source, "")
}

// newRecord decodes a source document into a record of kind. fallbackID
// is used when the document does not carry the kind's ID field, as
// happens with _source filtering.
func newRecord(info KindInfo, source []byte, fallbackID string) (*Record, error) {
	if len(bytes.TrimSpace(source)) == 0 {
		return nil, &DecodeError{Kind: info.Kind, Err: errors.New("empty document")}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(source, &fields); err != nil {
		return nil, &DecodeError{Kind: info.Kind, Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Kind: info.Kind, Err: errors.New("document is not an object")}
	}

	view := decodeView(info, source, fields)

	id := fallbackID
	if raw, ok := fields[info.IDField]; ok {
		s, err := scalarID(raw)
		if err != nil {
			return nil, &DecodeError{Kind: info.Kind, Err: fmt.Errorf("field %q: %w", info.IDField, err)}
		}
		if s != "" {
			id = s
		}
	}
	if id == "" {
		return nil, &DecodeError{Kind: info.Kind, Err: fmt.Errorf("missing required field %q", info.IDField)}
	}

	return &Record{
		Kind:   info.Kind,
		ID:     id,
		Source: json.RawMessage(bytes.Clone(source)),
		view:   view,
	}, nil
}

// decodeView fills the kind's typed view. Views are a convenience over the
// source document, so a field whose type does not match the view is left
// at its zero value instead of rejecting the whole record.
func decodeView(info KindInfo, source []byte, fields map[string]json.RawMessage) any {
	view := info.newView()
	if err := json.Unmarshal(source, view); err == nil {
		return view
	}

	view = info.newView()
	for name, raw := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: raw})
		if err != nil {
			continue
		}
		_ = json.Unmarshal(one, view)
	}
	return view
}

func scalarID(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("identifier must be a scalar, got %T", v)
	}
}

// Decode unmarshals the record's source document into v.
func (r *Record) Decode(v any) error {
	if err := json.Unmarshal(r.Source, v); err != nil {
		return &DecodeError{Kind: r.Kind, Err: err}
	}
	return nil
}

// View returns the typed view of the record: one of *Author, *Module,
// *Distribution, *Release, *File, *Favorite or *Rating.
func (r *Record) View() any { return r.view }

// Author returns the record as an author, or nil for other kinds.
func (r *Record) Author() *Author {
	a, _ := r.view.(*Author)
	return a
}

// Module returns the record as a module, or nil for other kinds.
func (r *Record) Module() *Module {
	m, _ := r.view.(*Module)
	return m
}

// Distribution returns the record as a distribution, or nil for other kinds.
func (r *Record) Distribution() *Distribution {
	d, _ := r.view.(*Distribution)
	return d
}

// Release returns the record as a release, or nil for other kinds.
func (r *Record) Release() *Release {
	rel, _ := r.view.(*Release)
	return rel
}

// File returns the record as a file, or nil for other kinds.
func (r *Record) File() *File {
	f, _ := r.view.(*File)
	return f
}

// Favorite returns the record as a favorite, or nil for other kinds.
func (r *Record) Favorite() *Favorite {
	f, _ := r.view.(*Favorite)
	return f
}

// Rating returns the record as a rating, or nil for other kinds.
func (r *Record) Rating() *Rating {
	rt, _ := r.view.(*Rating)
	return rt
}

// Date returns the record's upload or update date, or "" when the kind
// has none.
func (r *Record) Date() Timestamp {
	switch v := r.view.(type) {
	case *Author:
		return v.Updated
	case *Module:
		return v.Date
	case *Distribution:
		return v.Date
	case *Release:
		return v.Date
	case *File:
		return v.Date
	case *Favorite:
		return v.Date
	case *Rating:
		return v.Date
	default:
		return ""
	}
}

// StringList decodes either a single JSON string or an array of strings.
// The backend uses both forms for author emails and websites.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// Version is a release or module version. The backend sends most versions
// as strings but some as JSON numbers (0.01); numbers keep their literal
// text so trailing zeros survive.
type Version string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Version(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected version string or number: %w", err)
	}
	*v = Version(n)
	return nil
}

// Timestamp is a backend date. The backend omits the zone, so values are
// interpreted as UTC.
type Timestamp string

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

// Time parses the timestamp.
func (ts Timestamp) Time() (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, string(ts)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", string(ts))
}

// Author is a CPAN author.
type Author struct {
	PauseID     string     `json:"pauseid"`
	Name        string     `json:"name"`
	ASCIIName   string     `json:"asciiname,omitempty"`
	Email       StringList `json:"email,omitempty"`
	Website     StringList `json:"website,omitempty"`
	City        string     `json:"city,omitempty"`
	Region      string     `json:"region,omitempty"`
	Country     string     `json:"country,omitempty"`
	GravatarURL string     `json:"gravatar_url,omitempty"`
	Updated     Timestamp  `json:"updated,omitempty"`
}

// ModuleEntry is a package declared by a module file.
type ModuleEntry struct {
	Name       string  `json:"name"`
	Version    Version `json:"version,omitempty"`
	Indexed    bool    `json:"indexed"`
	Authorized bool    `json:"authorized"`
}

// Module is an indexed module file.
type Module struct {
	Name          string        `json:"name"`
	Path          string        `json:"path"`
	Documentation string        `json:"documentation"`
	Abstract      string        `json:"abstract,omitempty"`
	Author        string        `json:"author"`
	Distribution  string        `json:"distribution"`
	Release       string        `json:"release"`
	Version       Version       `json:"version,omitempty"`
	Status        string        `json:"status,omitempty"`
	Date          Timestamp     `json:"date,omitempty"`
	Packages      []ModuleEntry `json:"module,omitempty"`
}

// River summarizes how many distributions depend on a distribution.
type River struct {
	Bucket    int `json:"bucket"`
	Immediate int `json:"immediate"`
	Total     int `json:"total"`
}

// Distribution is a CPAN distribution.
//
// Distributions produced by reverse-dependency resolution also carry the
// summary of the matching release.
type Distribution struct {
	Name  string `json:"name"`
	River *River `json:"river,omitempty"`

	Release  string    `json:"release,omitempty"`
	Version  Version   `json:"version,omitempty"`
	Author   string    `json:"author,omitempty"`
	Abstract string    `json:"abstract,omitempty"`
	Date     Timestamp `json:"date,omitempty"`
}

// Dependency is a prerequisite declared by a release.
type Dependency struct {
	Module       string  `json:"module"`
	Version      Version `json:"version,omitempty"`
	Phase        string  `json:"phase"`
	Relationship string  `json:"relationship"`
}

// Release is a single uploaded version of a distribution.
type Release struct {
	Name         string       `json:"name"`
	Distribution string       `json:"distribution"`
	Author       string       `json:"author"`
	Version      Version      `json:"version,omitempty"`
	Abstract     string       `json:"abstract,omitempty"`
	Status       string       `json:"status,omitempty"`
	Maturity     string       `json:"maturity,omitempty"`
	Date         Timestamp    `json:"date,omitempty"`
	DownloadURL  string       `json:"download_url,omitempty"`
	Authorized   bool         `json:"authorized,omitempty"`
	Dependencies []Dependency `json:"dependency,omitempty"`
}

// File is a file inside a release.
type File struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Author        string    `json:"author"`
	Release       string    `json:"release"`
	Distribution  string    `json:"distribution"`
	Documentation string    `json:"documentation,omitempty"`
	Status        string    `json:"status,omitempty"`
	Directory     bool      `json:"directory,omitempty"`
	Indexed       bool      `json:"indexed,omitempty"`
	SLOC          int       `json:"sloc,omitempty"`
	Date          Timestamp `json:"date,omitempty"`
}

// Favorite is a user's ++ of a distribution.
type Favorite struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	Author       string    `json:"author"`
	Release      string    `json:"release"`
	Distribution string    `json:"distribution"`
	Date         Timestamp `json:"date,omitempty"`
}

// Rating is a user's rating of a release.
type Rating struct {
	ID           string    `json:"id,omitempty"`
	User         string    `json:"user,omitempty"`
	Author       string    `json:"author"`
	Release      string    `json:"release"`
	Distribution string    `json:"distribution"`
	Rating       float64   `json:"rating"`
	Date         Timestamp `json:"date,omitempty"`
}

package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jparise/mcpan/internal/metacpan"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		colorize bool
	}{
		{name: "with colors", colorize: true},
		{name: "without colors", colorize: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := New(&bytes.Buffer{}, &bytes.Buffer{}, tt.colorize, false)
			colorFuncs := []struct {
				name string
				fn   func(string) string
			}{
				{"cyan", output.cyan},
				{"green", output.green},
				{"white", output.white},
				{"yellow", output.yellow},
				{"red", output.red},
				{"gray", output.gray},
			}
			for _, cf := range colorFuncs {
				if cf.fn == nil {
					t.Fatalf("New() %s color func is nil", cf.name)
				}
				s := cf.fn("test")
				if tt.colorize {
					if s == "test" {
						t.Errorf("New() expected %s color func to return ANSI codes", cf.name)
					}
				} else if s != "test" {
					t.Errorf("New() expected %s color func to return plain string, got %q", cf.name, s)
				}
			}
		})
	}
}

func mustRecord(t *testing.T, kind metacpan.Kind, source string) *metacpan.Record {
	t.Helper()
	rec, err := metacpan.NewRecord(kind, []byte(source))
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return rec
}

func TestRecord(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		kind       metacpan.Kind
		source     string
		hyperlinks bool
		want       string
		wantURL    string
	}{
		{
			name:   "author",
			kind:   metacpan.KindAuthor,
			source: `{"pauseid": "HAARG", "name": "Graham Knop"}`,
			want:   "HAARG  Graham Knop\n",
		},
		{
			name:   "release with age",
			kind:   metacpan.KindRelease,
			source: `{"name": "Moo-2.005005", "author": "HAARG", "abstract": "Minimalist Object Orientation", "date": "2024-05-25T00:00:00"}`,
			want:   "Moo-2.005005  HAARG - Minimalist Object Orientation  1 week ago\n",
		},
		{
			name:   "distribution with unparseable date",
			kind:   metacpan.KindDistribution,
			source: `{"name": "Moo", "date": "someday"}`,
			want:   "Moo\n",
		},
		{
			name:   "rating",
			kind:   metacpan.KindRating,
			source: `{"id": "r1", "distribution": "Moo", "rating": 4.5}`,
			want:   "r1  Moo 4.5\n",
		},
		{
			name:   "file",
			kind:   metacpan.KindFile,
			source: `{"id": "f1", "author": "HAARG", "release": "Moo-2.0", "path": "lib/Moo.pm"}`,
			want:   "f1  HAARG/Moo-2.0 - lib/Moo.pm\n",
		},
		{
			name:       "author hyperlink",
			kind:       metacpan.KindAuthor,
			source:     `{"pauseid": "HAARG", "name": "Graham Knop"}`,
			hyperlinks: true,
			wantURL:    "https://metacpan.org/author/HAARG",
		},
		{
			name:       "module hyperlink",
			kind:       metacpan.KindModule,
			source:     `{"documentation": "Moo::Role", "release": "Moo-2.0"}`,
			hyperlinks: true,
			wantURL:    "https://metacpan.org/pod/Moo::Role",
		},
		{
			name:       "release hyperlink",
			kind:       metacpan.KindRelease,
			source:     `{"name": "Moo-2.0", "author": "HAARG"}`,
			hyperlinks: true,
			wantURL:    "https://metacpan.org/release/HAARG/Moo-2.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			output := New(stdout, &bytes.Buffer{}, false, tt.hyperlinks)
			output.now = func() time.Time { return now }

			output.Record(mustRecord(t, tt.kind, tt.source))

			got := stdout.String()
			if tt.wantURL != "" {
				if !strings.Contains(got, "\033]8;;"+tt.wantURL+"\033\\") {
					t.Errorf("Record() = %q, want hyperlink to %q", got, tt.wantURL)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Record() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	stdout := &bytes.Buffer{}
	output := New(stdout, &bytes.Buffer{}, false, false)

	if err := output.JSON(mustRecord(t, metacpan.KindAuthor, `{"pauseid":"HAARG","name":"Graham Knop"}`)); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	got := stdout.String()
	if !strings.HasPrefix(got, "{\n") || !strings.HasSuffix(got, "}\n") {
		t.Errorf("JSON() = %q, want an indented object", got)
	}
	for _, want := range []string{`  "pauseid": "HAARG"`, `  "name": "Graham Knop"`} {
		if !strings.Contains(got, want) {
			t.Errorf("JSON() = %q, missing %q", got, want)
		}
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		kind metacpan.Kind
		n    int
		want string
	}{
		{metacpan.KindRelease, 1, "1 release\n"},
		{metacpan.KindRelease, 0, "0 releases\n"},
		{metacpan.KindAuthor, 14235, "14,235 authors\n"},
	}
	for _, tt := range tests {
		stdout := &bytes.Buffer{}
		New(stdout, &bytes.Buffer{}, false, false).Count(tt.kind, tt.n)
		if got := stdout.String(); got != tt.want {
			t.Errorf("Count(%q, %d) = %q, want %q", tt.kind, tt.n, got, tt.want)
		}
	}
}

func TestMessages(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	output := New(stdout, stderr, false, false)

	output.Warningf("%s: %d", "test", 42)
	output.Errorf("failed %s", "lookup")
	output.Line("https://cpan.metacpan.org/authors/id/H/HA/HAARG/Moo-2.0.tar.gz")

	wantErr := "Warning: test: 42\nError: failed lookup\n"
	if got := stderr.String(); got != wantErr {
		t.Errorf("stderr = %q, want %q", got, wantErr)
	}
	if got := stdout.String(); got != "https://cpan.metacpan.org/authors/id/H/HA/HAARG/Moo-2.0.tar.gz\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestConcurrentOutput(t *testing.T) {
	stdout := &bytes.Buffer{}
	output := New(stdout, &bytes.Buffer{}, false, false)
	rec := mustRecord(t, metacpan.KindAuthor, `{"pauseid": "HAARG", "name": "Graham Knop"}`)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			output.Record(rec)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for i, line := range lines {
		if line != "HAARG  Graham Knop" {
			t.Errorf("line %d = %q", i, line)
		}
	}
}

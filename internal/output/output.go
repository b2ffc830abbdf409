// Package output renders MetaCPAN records for the terminal.
package output

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cli/go-gh/v2/pkg/jsonpretty"
	"github.com/dustin/go-humanize"
	"github.com/jparise/mcpan/internal/metacpan"
	"github.com/mgutz/ansi"
)

// WebHost is the site record hyperlinks point at.
const WebHost = "https://metacpan.org"

// Output handles all output formatting with optional color and hyperlink support.
type Output struct {
	mu         sync.Mutex
	stdout     io.Writer
	stderr     io.Writer
	colorize   bool
	hyperlinks bool
	now        func() time.Time

	cyan   func(string) string
	green  func(string) string
	white  func(string) string
	yellow func(string) string
	red    func(string) string
	gray   func(string) string
}

// New creates a new Output with optional color and hyperlink support.
func New(stdout, stderr io.Writer, colorize, hyperlinks bool) *Output {
	color := func(name string) func(string) string {
		if colorize {
			return ansi.ColorFunc(name)
		}
		return ansi.ColorFunc("")
	}

	return &Output{
		stdout:     stdout,
		stderr:     stderr,
		colorize:   colorize,
		hyperlinks: hyperlinks,
		now:        time.Now,
		cyan:       color("cyan"),
		green:      color("green+b"),
		white:      color("white"),
		yellow:     color("yellow"),
		red:        color("red+b"),
		gray:       color("black+h"),
	}
}

func makeHyperlink(url, text string) string {
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}

// Record writes a one-line summary of rec: its identifier followed by the
// most useful fields of its kind and, when known, the age of its date.
func (o *Output) Record(rec *metacpan.Record) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.green(rec.ID)
	if o.hyperlinks {
		if link := recordURL(rec); link != "" {
			id = makeHyperlink(link, id)
		}
	}

	parts := []string{id}
	if s := summary(rec); s != "" {
		parts = append(parts, o.white(s))
	}
	if age := o.age(rec.Date()); age != "" {
		parts = append(parts, o.gray(age))
	}

	fmt.Fprintf(o.stdout, "%s\n", strings.Join(parts, "  "))
}

// JSON writes the record's source document as indented JSON.
func (o *Output) JSON(rec *metacpan.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := jsonpretty.Format(o.stdout, bytes.NewReader(rec.Source), "  ", o.colorize); err != nil {
		return fmt.Errorf("failed to format %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// Count writes a result total such as "1,234 releases".
func (o *Output) Count(kind metacpan.Kind, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	noun := string(kind)
	if n != 1 {
		noun += "s"
	}
	fmt.Fprintf(o.stdout, "%s %s\n", o.cyan(humanize.Comma(int64(n))), noun)
}

// Line writes a plain line to stdout.
func (o *Output) Line(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.stdout, s)
}

// Warningf writes a formatted warning message to stderr.
func (o *Output) Warningf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stderr, o.yellow("Warning: ")+format+"\n", args...)
}

// Errorf writes a formatted error message to stderr.
func (o *Output) Errorf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.stderr, o.red("Error: ")+format+"\n", args...)
}

func (o *Output) age(ts metacpan.Timestamp) string {
	if ts == "" {
		return ""
	}
	t, err := ts.Time()
	if err != nil {
		return ""
	}
	return humanize.RelTime(t, o.now(), "ago", "from now")
}

func summary(rec *metacpan.Record) string {
	switch v := rec.View().(type) {
	case *metacpan.Author:
		return v.Name
	case *metacpan.Module:
		return joinNonEmpty(v.Abstract, v.Release)
	case *metacpan.Distribution:
		return joinNonEmpty(v.Release, v.Abstract)
	case *metacpan.Release:
		return joinNonEmpty(v.Author, v.Abstract)
	case *metacpan.File:
		return joinNonEmpty(v.Author+"/"+v.Release, v.Path)
	case *metacpan.Favorite:
		return joinNonEmpty(v.User, v.Distribution)
	case *metacpan.Rating:
		return fmt.Sprintf("%s %.1f", v.Distribution, v.Rating)
	default:
		return ""
	}
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" && p != "/" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " - ")
}

// recordURL returns the web page of rec, or "" when the kind has none.
func recordURL(rec *metacpan.Record) string {
	switch v := rec.View().(type) {
	case *metacpan.Author:
		return WebHost + "/author/" + url.PathEscape(v.PauseID)
	case *metacpan.Module:
		return WebHost + "/pod/" + url.PathEscape(rec.ID)
	case *metacpan.Distribution:
		return WebHost + "/dist/" + url.PathEscape(v.Name)
	case *metacpan.Release:
		if v.Author == "" {
			return WebHost + "/dist/" + url.PathEscape(v.Distribution)
		}
		return WebHost + "/release/" + url.PathEscape(v.Author) + "/" + url.PathEscape(v.Name)
	default:
		return ""
	}
}

package lookup

import (
	"time"

	"github.com/jparise/mcpan/internal/metacpan"
)

// Options contains the listing parameters shared by every command.
type Options struct {
	Search        metacpan.SearchOptions
	Excludes      []string   // Glob patterns matched against record IDs
	IgnoreCase    bool       // Match exclude patterns case-insensitively
	ChangedAfter  *time.Time // Records dated after this time (nil = no filter)
	ChangedBefore *time.Time // Records dated before this time (nil = no filter)
	JSON          bool       // Print source documents instead of summaries
	CountOnly     bool       // Print the number of matches only
	Jobs          int        // Maximum concurrent API requests
}

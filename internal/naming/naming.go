// Package naming generates collision-free file names for extracted images.
package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds the collision loop so a broken ID source cannot
// spin forever.
const DefaultMaxAttempts = 1000

// ErrExhausted is returned when no free name was found within MaxAttempts.
var ErrExhausted = errors.New("no unique file name available")

// Generator produces file names of the form {id}_{unix}.{ext}. Every field is
// optional; the zero value uses a random UUID prefix, the wall clock and the
// filesystem.
type Generator struct {
	ID          func() string
	Now         func() time.Time
	Exists      func(path string) bool
	MaxAttempts int
}

// UUIDHex8 returns the first eight hex characters of a random v4 UUID.
func UUIDHex8() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")[:8]
}

// fileExists only reports true for paths that stat cleanly; other errors are
// left for the write to surface.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Name returns a file name for ext that does not yet exist in dir. The
// timestamp is taken once; only the random part changes between attempts.
func (g Generator) Name(dir, ext string) (string, error) {
	id := g.ID
	if id == nil {
		id = UUIDHex8
	}
	now := g.Now
	if now == nil {
		now = time.Now
	}
	exists := g.Exists
	if exists == nil {
		exists = fileExists
	}
	limit := g.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	ts := strconv.FormatInt(now().Unix(), 10)
	for i := 0; i < limit; i++ {
		name := id() + "_" + ts + "." + ext
		if !exists(filepath.Join(dir, name)) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w in %s after %d attempts", ErrExhausted, dir, limit)
}

// Sequence returns an ID function that yields ids in order and then repeats
// the last one. It is meant for tests and reproducible runs.
func Sequence(ids ...string) func() string {
	i := 0
	return func() string {
		if len(ids) == 0 {
			return ""
		}
		v := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return v
	}
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

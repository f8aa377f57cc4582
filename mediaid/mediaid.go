// Package mediaid generates the opaque identifiers used for media records and
// their object keys: a decimal millisecond timestamp followed by six random digits.
package mediaid

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"
)

const randomDigits = 6

var (
	lastMillis atomic.Int64
	idPattern  = regexp.MustCompile(`^[0-9]{13,}$`)

	ErrInvalid = errors.New("mediaid: invalid id")
)

// New returns a fresh id. The timestamp part strictly increases within a
// process, so ids from one process never collide.
func New() string {
	return format(nextMillis(time.Now().UnixMilli()), rand.IntN(1_000_000))
}

func nextMillis(now int64) int64 {
	for {
		last := lastMillis.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastMillis.CompareAndSwap(last, next) {
			return next
		}
	}
}

func format(millis int64, random int) string {
	return fmt.Sprintf("%d%0*d", millis, randomDigits, random)
}

// IsValid reports whether the string looks like an id produced by New.
func IsValid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Parse returns the time encoded in an id.
func Parse(value string) (time.Time, error) {
	if !idPattern.MatchString(value) {
		return time.Time{}, ErrInvalid
	}

	millis, err := strconv.ParseInt(value[:len(value)-randomDigits], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return time.UnixMilli(millis), nil
}

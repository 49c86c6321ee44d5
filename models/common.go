package models

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrInvalid     = errors.New("invalid value")
	ErrMapFull     = errors.New("stakeholder map is full")
	ErrMapMismatch = errors.New("stakeholder belongs to another map")
	ErrNotFound    = errors.New("not found")
)

// DefaultMaxStakeholders applies when no maximum is configured.
const DefaultMaxStakeholders = 100

const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

// now is swapped out in tests.
var now = func() time.Time {
	return time.Now().UTC()
}

// NewID returns a fresh public identifier.
func NewID() string {
	return gonanoid.Must()
}

// ClampScore rounds v to the nearest integer and clamps it to 1-10.
// Non-finite input yields the default score.
func ClampScore(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultScore
	}
	r := int(math.Round(v))
	if r < MinScore {
		return MinScore
	}
	if r > MaxScore {
		return MaxScore
	}
	return r
}

func capText(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

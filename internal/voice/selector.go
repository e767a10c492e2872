// Package voice picks the TTS voice for a narration from the Orpheus voice
// set, honoring an optional demographic hint from the job.
package voice

import (
	"math/rand"
	"strings"
)

// Voice pools shipped with the Orpheus engine.
var (
	FemininePool  = []string{"tara", "leah", "jess", "mia", "zoe"}
	MasculinePool = []string{"leo", "dan", "zac"}
)

var (
	feminineHints  = map[string]bool{"female": true, "woman": true, "f": true, "feminine": true, "girl": true}
	masculineHints = map[string]bool{"male": true, "man": true, "m": true, "masculine": true, "boy": true}
)

// Options carries the configured selection policy.
type Options struct {
	// Default is the voice used when no hint applies and randomization is
	// off.
	Default string
	// UseRandom enables random picks instead of the configured default.
	UseRandom bool
}

// Select returns the voice identifier for one synthesis request. hint is a
// free-text gender hint from the job; unrecognized values are ignored.
func Select(opts Options, hint string) string {
	pool := poolFor(hint)

	if pool == nil {
		if opts.UseRandom {
			if rand.Intn(2) == 0 {
				return pick(FemininePool)
			}
			return pick(MasculinePool)
		}
		return opts.Default
	}

	if opts.UseRandom {
		return pick(pool)
	}
	if contains(pool, opts.Default) {
		return opts.Default
	}
	// Configured default contradicts the hint; override within the pool.
	return pick(pool)
}

func poolFor(hint string) []string {
	h := strings.ToLower(strings.TrimSpace(hint))
	switch {
	case feminineHints[h]:
		return FemininePool
	case masculineHints[h]:
		return MasculinePool
	default:
		return nil
	}
}

func pick(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

func contains(pool []string, v string) bool {
	for _, p := range pool {
		if p == v {
			return true
		}
	}
	return false
}

package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectHintOverridesDefaultOutsidePool(t *testing.T) {
	opts := Options{Default: "leo", UseRandom: false}
	for i := 0; i < 1000; i++ {
		got := Select(opts, "female")
		assert.Contains(t, FemininePool, got)
	}
}

func TestSelectHintKeepsDefaultInsidePool(t *testing.T) {
	opts := Options{Default: "mia", UseRandom: false}
	for i := 0; i < 100; i++ {
		assert.Equal(t, "mia", Select(opts, "Female"))
	}
}

func TestSelectNoHintDeterministicDefault(t *testing.T) {
	opts := Options{Default: "tara", UseRandom: false}
	for i := 0; i < 1000; i++ {
		assert.Equal(t, "tara", Select(opts, ""))
	}
}

func TestSelectUnrecognizedHintTreatedAsAbsent(t *testing.T) {
	opts := Options{Default: "tara", UseRandom: false}
	assert.Equal(t, "tara", Select(opts, "robot"))
}

func TestSelectRandomStaysInHintedPool(t *testing.T) {
	opts := Options{Default: "tara", UseRandom: true}
	for i := 0; i < 200; i++ {
		assert.Contains(t, MasculinePool, Select(opts, "MALE"))
	}
}

func TestSelectRandomNoHintDrawsFromBothPools(t *testing.T) {
	opts := Options{Default: "tara", UseRandom: true}
	all := append(append([]string{}, FemininePool...), MasculinePool...)
	seenFeminine, seenMasculine := false, false
	for i := 0; i < 500; i++ {
		got := Select(opts, "")
		assert.Contains(t, all, got)
		if contains(FemininePool, got) {
			seenFeminine = true
		}
		if contains(MasculinePool, got) {
			seenMasculine = true
		}
	}
	assert.True(t, seenFeminine, "expected at least one feminine pick in 500 trials")
	assert.True(t, seenMasculine, "expected at least one masculine pick in 500 trials")
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNarrationTextPrefersExplicitText(t *testing.T) {
	j := Job{Text: "  hello  ", CompanyResearch: "ignored"}
	assert.Equal(t, "hello", j.NarrationText())
}

func TestNarrationTextResearchFallback(t *testing.T) {
	j := Job{CompanyResearch: "acme builds rockets", ProfileResearch: "jo runs acme"}
	assert.Equal(t, "acme builds rockets\n\njo runs acme", j.NarrationText())
}

func TestNarrationTextPartialResearch(t *testing.T) {
	j := Job{ProfileResearch: "jo runs acme"}
	assert.Equal(t, "jo runs acme", j.NarrationText())
}

func TestNarrationTextEmpty(t *testing.T) {
	assert.Empty(t, Job{}.NarrationText())
	assert.Empty(t, Job{Text: "   "}.NarrationText())
}

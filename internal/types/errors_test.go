package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisErrorIs(t *testing.T) {
	err := NewUnavailableError("skill_match", "timeout")
	wrapped := fmt.Errorf("获取匹配结果: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAnalysisUnavailable))
	assert.False(t, errors.Is(wrapped, ErrMalformedAnalysisResult))
	assert.True(t, IsRetryable(wrapped))
	assert.Contains(t, err.Error(), "skill_match")

	var ae *AnalysisError
	assert.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, "timeout", ae.Detail)

	malformed := NewMalformedError("compatibility", "")
	assert.True(t, errors.Is(malformed, ErrMalformedAnalysisResult))
	assert.True(t, IsRetryable(malformed))
	assert.False(t, IsRetryable(ErrNotFound))
}

func TestCachePersistenceWarningUnwrap(t *testing.T) {
	base := errors.New("deadlock")
	w := &CachePersistenceWarning{Tier: "fast", Op: "upsert", CandidateID: "c1", JobID: "j1", Err: base}
	assert.ErrorIs(t, w, base)
	assert.Contains(t, w.Error(), "fast")
}

func TestNormalizeRequirement(t *testing.T) {
	cases := map[string]Requirement{
		"required":     RequirementRequired,
		"preferred":    RequirementPreferred,
		"nice_to_have": RequirementNiceToHave,
		"nice-to-have": RequirementNiceToHave,
		"":             RequirementRequired,
		"must":         RequirementRequired,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRequirement(in), "输入: %q", in)
	}
}

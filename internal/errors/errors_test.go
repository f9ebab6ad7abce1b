package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/digigm/internal/errors"
)

func TestViolation_CarriesRuleAndDetail(t *testing.T) {
	err := errors.Violation(errors.RuleEvolutionRequirement, "Need 5 battles won (have 2)").WithShortfall(5, 2)
	assert.Equal(t, errors.CodeRuleViolation, errors.CodeOf(err))
	assert.Equal(t, errors.RuleEvolutionRequirement, errors.RuleOf(err))
	assert.Equal(t, 5, err.Meta["required"])
	assert.Equal(t, 2, err.Meta["have"])
	assert.Equal(t, "RULE_VIOLATION(evolution_requirement): Need 5 battles won (have 2)", err.Error())
}

func TestIs_MatchesCodeAndOptionalRule(t *testing.T) {
	err := errors.Violation(errors.RuleRankCap, "cap")
	assert.True(t, stderrors.Is(err, &errors.Error{Code: errors.CodeRuleViolation}))
	assert.True(t, stderrors.Is(err, &errors.Error{Code: errors.CodeRuleViolation, Rule: errors.RuleRankCap}))
	assert.False(t, stderrors.Is(err, &errors.Error{Code: errors.CodeRuleViolation, Rule: errors.RuleStageGate}))
	assert.False(t, stderrors.Is(err, &errors.Error{Code: errors.CodeNotFound}))
}

func TestWrap_PreservesCodeAndRule(t *testing.T) {
	inner := errors.Violation(errors.RulePrerequisiteUnmet, "missing").WithMissing("Data Optimization")
	wrapped := errors.Wrap(inner, "add quality")
	require.NotNil(t, wrapped)
	assert.Equal(t, errors.CodeRuleViolation, wrapped.Code)
	assert.Equal(t, errors.RulePrerequisiteUnmet, wrapped.Rule)
	assert.Equal(t, []string{"Data Optimization"}, wrapped.Missing)
	assert.Same(t, inner, stderrors.Unwrap(wrapped))

	plain := errors.Wrap(stderrors.New("boom"), "ctx")
	assert.Equal(t, errors.CodeInternal, plain.Code)
	assert.Nil(t, errors.Wrap(nil, "nothing"))
}

func TestStorage_WrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Storage(cause, "get digimon %s", "d1")
	assert.True(t, errors.IsStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, errors.Storage(nil, "unused"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.CodeOf(nil))
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(stderrors.New("x")))
	assert.True(t, errors.IsNotFound(errors.NotFound("digimon", "x")))
	assert.True(t, errors.IsValidation(errors.Validation("name required")))
}

// Package errors is the structured error taxonomy returned by digigm
// services. Every error carries a Code; rule violations additionally
// carry the Rule that was broken and the details a caller needs to
// render a specific message.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code string

const (
	CodeOK             Code = "OK"
	CodeValidation     Code = "VALIDATION"
	CodeNotFound       Code = "NOT_FOUND"
	CodeRuleViolation  Code = "RULE_VIOLATION"
	CodeStorageFailure Code = "STORAGE_FAILURE"
	CodeInternal       Code = "INTERNAL"
)

func (c Code) String() string { return string(c) }

// Rule names the build or progression constraint a RULE_VIOLATION broke.
type Rule string

const (
	RuleExclusiveConflict    Rule = "exclusive_conflict"
	RulePrerequisiteUnmet    Rule = "prerequisite_unmet"
	RuleRankCap              Rule = "rank_cap"
	RuleStageGate            Rule = "stage_gate"
	RuleEvolutionRequirement Rule = "evolution_requirement"
	RuleMaxStage             Rule = "max_stage"
	RuleMinStage             Rule = "min_stage"
	RuleChoiceRequired       Rule = "choice_required"
	RuleUnknownQuality       Rule = "unknown_quality"
	RuleAttackSlots          Rule = "attack_slots"
	RuleIllegalTransition    Rule = "illegal_transition"
)

// Error is the structured error type.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Rule    Rule           `json:"rule,omitempty"`
	Missing []string       `json:"missing,omitempty"`
	Cause   error          `json:"-"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Rule != "" {
		prefix += "(" + string(e.Rule) + ")"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, and by rule when the target names one.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Rule != "" && t.Rule != e.Rule {
		return false
	}
	return e.Code == t.Code
}

// WithMeta attaches a metadata entry and returns e.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// WithShortfall records the required and current numeric values for a
// threshold rule.
func (e *Error) WithShortfall(required, have int) *Error {
	return e.WithMeta("required", required).WithMeta("have", have)
}

// WithMissing records the unmet prerequisite or item names.
func (e *Error) WithMissing(missing ...string) *Error {
	e.Missing = append(e.Missing, missing...)
	return e
}

// New creates an error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound reports a missing entity of kind with id.
func NotFound(kind, id string) *Error {
	return Newf(CodeNotFound, "%s %q not found", kind, id).WithMeta("kind", kind).WithMeta("id", id)
}

// Violation reports a broken rule.
func Violation(rule Rule, format string, args ...any) *Error {
	e := Newf(CodeRuleViolation, format, args...)
	e.Rule = rule
	return e
}

// Storage wraps a storage collaborator failure.
func Storage(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeStorageFailure, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Wrap wraps err, keeping its code when err is already an *Error.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Code:    existing.Code,
			Message: message,
			Rule:    existing.Rule,
			Missing: existing.Missing,
			Cause:   err,
			Meta:    existing.Meta,
		}
	}
	return &Error{Code: CodeInternal, Message: message, Cause: err}
}

// CodeOf extracts the code from err. Non-structured errors are INTERNAL.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// RuleOf extracts the rule from err, or "" when err is not a rule violation.
func RuleOf(err error) Rule {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}

// As is errors.As specialised to *Error.
func As(err error, target **Error) bool { return errors.As(err, target) }

// Is forwards to the standard library.
func Is(err, target error) bool { return errors.Is(err, target) }

func IsNotFound(err error) bool      { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool    { return CodeOf(err) == CodeValidation }
func IsRuleViolation(err error) bool { return CodeOf(err) == CodeRuleViolation }
func IsStorage(err error) bool       { return CodeOf(err) == CodeStorageFailure }

package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUnknownOption, "unknown option: %s", "bandwidth")

	if err.Code != ErrCodeUnknownOption {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeUnknownOption)
	}
	if !strings.Contains(err.Error(), "bandwidth") {
		t.Errorf("Error() = %q, missing formatted arg", err.Error())
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrCodeInvalidInput, cause, "load topology")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is() does not find the wrapped cause")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Error() = %q, missing cause", err.Error())
	}
}

func TestIs_MatchesCode(t *testing.T) {
	err := New(ErrCodeAmbiguousCenter, "ego position varies over time")

	if !Is(err, ErrCodeAmbiguousCenter) {
		t.Error("Is() = false for matching code")
	}
	if Is(err, ErrCodeMissingColumn) {
		t.Error("Is() = true for non-matching code")
	}
	if Is(stderrors.New("plain"), ErrCodeAmbiguousCenter) {
		t.Error("Is() = true for non-structured error")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeMissingColumn, "no such column")); got != ErrCodeMissingColumn {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeMissingColumn)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode() = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeDuplicateProfile, "entity %q has 2 profile rows", "alice")
	if got := UserMessage(err); strings.Contains(got, string(ErrCodeDuplicateProfile)) {
		t.Errorf("UserMessage() = %q, should not contain the code", got)
	}
}

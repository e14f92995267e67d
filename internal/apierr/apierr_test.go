package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorHasNoCause(t *testing.T) {
	err := New(KindNotFound, "job not found")
	assert.Equal(t, "job not found", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapIncludesCauseInMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, "failed to write", cause)
	assert.Equal(t, "failed to write: disk full", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	err := New(KindAlreadyTerminal, "already done")
	assert.Equal(t, KindAlreadyTerminal, KindOf(err))
}

func TestKindOfDefaultsToInternalForForeignErrors(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("some unrelated failure")))
}

func TestKindOfFollowsErrorsAsThroughJoinedErrors(t *testing.T) {
	base := New(KindTooManyJobs, "at capacity")
	wrapped := errors.Join(errors.New("context"), base)
	assert.Equal(t, KindTooManyJobs, KindOf(wrapped))
}

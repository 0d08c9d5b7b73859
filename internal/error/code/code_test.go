package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryCodeIsMapped(t *testing.T) {
	for c := range codeMessageMap {
		_, ok := codeStatusMap[c]
		assert.True(t, ok, "code %d has a message but no status", c)
	}
	for c := range codeStatusMap {
		_, ok := codeMessageMap[c]
		assert.True(t, ok, "code %d has a status but no message", c)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[int]int{
		ErrTaskIDRequired:   StatusBadRequest,
		ErrTaskNotFound:     StatusNotFound,
		ErrMissionNotActive: StatusConflict,
		ErrInvalidSignature: StatusForbidden,
		ErrTooManyRequests:  StatusTooManyRequests,
		ErrUnknown:          StatusInternalServerError,
	}
	for c, want := range cases {
		assert.Equal(t, want, GetStatus(c), "code %d", c)
	}

	assert.Equal(t, "taskId is required", GetMessage(ErrTaskIDRequired))
	assert.Equal(t, "Task not found", GetMessage(ErrTaskNotFound))
	assert.Equal(t, StatusInternalServerError, GetStatus(999))
	assert.Equal(t, "Internal server error", GetMessage(999))
}

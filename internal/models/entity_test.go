package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusDeleted, false},
		{StatusPending, StatusPending, false},
		{StatusActive, StatusDeleted, true},
		{StatusActive, StatusRejected, false},
		{StatusActive, StatusPending, false},
		{StatusRejected, StatusDeleted, true},
		{StatusRejected, StatusActive, false},
		{StatusDeleted, StatusActive, false},
		{StatusDeleted, StatusPending, false},
		{StatusDeleted, StatusDeleted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDeleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusRejected.Terminal())
}

func TestEntityKindValid(t *testing.T) {
	assert.True(t, KindCenter.Valid())
	assert.True(t, KindTeacher.Valid())
	assert.True(t, KindStudent.Valid())
	assert.False(t, EntityKind("guardians").Valid())
	assert.False(t, EntityKind("").Valid())
}

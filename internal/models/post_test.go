package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionOnlyMovesForward(t *testing.T) {
	allowed := [][2]string{
		{PostStatusDraft, PostStatusScheduled},
		{PostStatusScheduled, PostStatusPublishing},
		{PostStatusPublishing, PostStatusPublished},
		{PostStatusPublishing, PostStatusFailed},
		{PostStatusDraft, PostStatusPublishing},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]string{
		{PostStatusPublished, PostStatusScheduled},
		{PostStatusFailed, PostStatusPublishing},
		{PostStatusPublishing, PostStatusScheduled},
		{PostStatusScheduled, PostStatusScheduled},
		{PostStatusPublished, PostStatusFailed},
		{"bogus", PostStatusScheduled},
		{PostStatusDraft, "bogus"},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

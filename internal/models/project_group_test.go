package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasFullCommitteeTreatsEmptyIDAsUnset(t *testing.T) {
	main, second, third, empty := "a-2", "a-3", "a-4", ""

	full := ProjectGroup{MainCommitteeID: &main, SecondCommitteeID: &second, ThirdCommitteeID: &third}
	assert.True(t, full.HasFullCommittee())

	blank := ProjectGroup{MainCommitteeID: &main, SecondCommitteeID: &second, ThirdCommitteeID: &empty}
	assert.False(t, blank.HasFullCommittee())
	assert.False(t, RefSet(&empty))
	assert.False(t, RefSet(nil))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnpackMarkerID(t *testing.T) {
	model, marker := UnpackMarkerID(3<<16 | 7)
	assert.Equal(t, 3, model)
	assert.Equal(t, 7, marker)

	model, marker = UnpackMarkerID(0xFFFF)
	assert.Equal(t, 0, model)
	assert.Equal(t, 0xFFFF, marker)
}

func TestInfoTypeValid(t *testing.T) {
	for _, it := range []InfoType{InfoPosition, InfoOrientation, InfoBoth} {
		assert.True(t, it.Valid(), it)
	}
	assert.False(t, InfoType("bogus").Valid())
	assert.False(t, InfoType("").Valid())
}

func TestMarkerSetsCloneIsDeep(t *testing.T) {
	orig := MarkerSets{"wand": {{1, 2, 3}, {4, 5, 6}}}
	clone := orig.Clone()
	clone["wand"][0][0] = 99
	clone["other"] = nil

	assert.Equal(t, 1.0, orig["wand"][0][0])
	assert.NotContains(t, orig, "other")
}

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindBestAgent_PicksLargestOverlap(t *testing.T) {
	roster := []*Agent{
		{ID: "a1", Name: "Ada", Skills: []string{"a", "b"}},
		{ID: "a2", Name: "Ben", Skills: []string{"a", "c", "d"}},
	}

	best := FindBestAgent(roster, []string{"a", "c"})
	assert.NotNil(t, best)
	assert.Equal(t, "a2", best.ID)
}

func TestFindBestAgent_EmptyRequirementsReturnsNil(t *testing.T) {
	roster := []*Agent{
		{ID: "a1", Skills: []string{"a"}},
	}
	assert.Nil(t, FindBestAgent(roster, nil))
	assert.Nil(t, FindBestAgent(roster, []string{}))
}

func TestFindBestAgent_NoOverlapReturnsNil(t *testing.T) {
	roster := []*Agent{
		{ID: "a1", Skills: []string{"a", "b"}},
		{ID: "a2", Skills: []string{"c"}},
	}
	assert.Nil(t, FindBestAgent(roster, []string{"x", "y"}))
}

func TestFindBestAgent_TieBrokenByRosterOrder(t *testing.T) {
	roster := []*Agent{
		{ID: "a1", Skills: []string{"a", "b"}},
		{ID: "a2", Skills: []string{"a", "b"}},
	}
	best := FindBestAgent(roster, []string{"a", "b"})
	assert.Equal(t, "a1", best.ID)
}

func TestFindBestAgent_EmptyRoster(t *testing.T) {
	assert.Nil(t, FindBestAgent(nil, []string{"a"}))
}

package sos

import (
	"sort"
	"testing"

	"tirtha/models"
)

func TestPriorityRankOrdering(t *testing.T) {
	if !(PriorityRank(models.PriorityCritical) < PriorityRank(models.PriorityHigh) &&
		PriorityRank(models.PriorityHigh) < PriorityRank(models.PriorityMedium) &&
		PriorityRank(models.PriorityMedium) < PriorityRank(models.PriorityLow)) {
		t.Fatal("priority ranks are not strictly ordered critical > high > medium > low")
	}

	// unknown labels triage as medium rather than dropping off the board
	if PriorityRank("urgentish") != PriorityRank(models.PriorityMedium) {
		t.Errorf("unknown priority should rank as medium")
	}
}

func TestTriageOrder(t *testing.T) {
	incidents := []models.Incident{
		{ID: "a", Priority: models.PriorityLow, PriorityRank: PriorityRank(models.PriorityLow), CreatedAt: 100},
		{ID: "b", Priority: models.PriorityCritical, PriorityRank: PriorityRank(models.PriorityCritical), CreatedAt: 300},
		{ID: "c", Priority: models.PriorityCritical, PriorityRank: PriorityRank(models.PriorityCritical), CreatedAt: 200},
		{ID: "d", Priority: models.PriorityHigh, PriorityRank: PriorityRank(models.PriorityHigh), CreatedAt: 50},
	}

	// same comparator the pending query sorts by: rank asc, then oldest first
	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].PriorityRank != incidents[j].PriorityRank {
			return incidents[i].PriorityRank < incidents[j].PriorityRank
		}
		return incidents[i].CreatedAt < incidents[j].CreatedAt
	})

	want := []string{"c", "b", "d", "a"}
	for i, id := range want {
		if incidents[i].ID != id {
			t.Fatalf("triage position %d: got %s, want %s", i, incidents[i].ID, id)
		}
	}
}

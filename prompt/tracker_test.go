package prompt

import (
	"testing"

	"aide/model"
)

func TestSectionTrackerLagsOneRequest(t *testing.T) {
	tracker := NewSectionTracker()

	first := tracker.Evaluate(map[string]string{
		model.SectionMemory: "user likes running",
	})
	if first[model.SectionMemory] {
		t.Error("memory should not be eligible on the first request")
	}

	second := tracker.Evaluate(map[string]string{
		model.SectionMemory: "user likes running",
	})
	if !second[model.SectionMemory] {
		t.Error("unchanged memory should be eligible on the second request")
	}

	third := tracker.Evaluate(map[string]string{
		model.SectionMemory: "user likes swimming",
	})
	if third[model.SectionMemory] {
		t.Error("changed memory should not be eligible")
	}

	fourth := tracker.Evaluate(map[string]string{
		model.SectionMemory: "user likes swimming",
	})
	if !fourth[model.SectionMemory] {
		t.Error("hash must be recorded even when the section was ineligible")
	}
}

func TestSectionTrackerFixedPolicies(t *testing.T) {
	tracker := NewSectionTracker()

	sections := map[string]string{
		model.SectionTools:    "add_event,update_event",
		model.SectionLocation: "Berlin",
		model.SectionHistory:  "earlier talk",
	}

	for i := 0; i < 3; i++ {
		eligible := tracker.Evaluate(sections)
		if !eligible[model.SectionTools] {
			t.Errorf("evaluation %d: tools must always be eligible", i+1)
		}
		if eligible[model.SectionLocation] {
			t.Errorf("evaluation %d: location must never be eligible", i+1)
		}
		if eligible[model.SectionHistory] {
			t.Errorf("evaluation %d: history must never be eligible", i+1)
		}
	}
}

func TestSectionTrackerEmptySectionIneligible(t *testing.T) {
	tracker := NewSectionTracker()

	tracker.Evaluate(map[string]string{model.SectionSchedule: ""})
	second := tracker.Evaluate(map[string]string{model.SectionSchedule: ""})
	if second[model.SectionSchedule] {
		t.Error("an empty section is never eligible, even when stable")
	}
}

func TestSectionTrackerReset(t *testing.T) {
	tracker := NewSectionTracker()

	tracker.Evaluate(map[string]string{model.SectionMemory: "facts"})
	tracker.Reset()

	eligible := tracker.Evaluate(map[string]string{model.SectionMemory: "facts"})
	if eligible[model.SectionMemory] {
		t.Error("reset must forget recorded hashes")
	}
}

package search

import "testing"

func TestNewRequest_Valid(t *testing.T) {
	req, err := NewRequest("/photos", "sunset over water", 0.3, 50, true, 0.4, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Folder() != "/photos" || req.Query() != "sunset over water" {
		t.Errorf("fields not carried: %q %q", req.Folder(), req.Query())
	}
	if req.Threshold() != 0.3 || req.MaxResults() != 50 {
		t.Errorf("unexpected threshold/max: %g %d", req.Threshold(), req.MaxResults())
	}
	if !req.Classify() || req.FusionWeight() != 0.4 || req.TopKLabels() != 3 {
		t.Errorf("unexpected classify params: %v %g %d",
			req.Classify(), req.FusionWeight(), req.TopKLabels())
	}
}

func TestNewRequest_RequiresFolder(t *testing.T) {
	if _, err := NewRequest("", "q", 0.3, 10, false, 0.3, 5); err == nil {
		t.Fatal("expected error for empty folder")
	}
}

func TestNewRequest_RequiresQuery(t *testing.T) {
	if _, err := NewRequest("/photos", "", 0.3, 10, false, 0.3, 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestNewRequest_ThresholdRange(t *testing.T) {
	if _, err := NewRequest("/p", "q", 1.5, 10, false, 0.3, 5); err == nil {
		t.Error("expected error for threshold above 1")
	}
	if _, err := NewRequest("/p", "q", -1.5, 10, false, 0.3, 5); err == nil {
		t.Error("expected error for threshold below -1")
	}
	if _, err := NewRequest("/p", "q", -1, 10, false, 0.3, 5); err != nil {
		t.Errorf("threshold -1 is valid, got %v", err)
	}
}

func TestNewRequest_MaxResultsPositive(t *testing.T) {
	if _, err := NewRequest("/p", "q", 0.3, 0, false, 0.3, 5); err == nil {
		t.Fatal("expected error for zero max results")
	}
}

func TestNewRequest_ClampsFusionWeight(t *testing.T) {
	req, err := NewRequest("/p", "q", 0.3, 10, true, 1.7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.FusionWeight() != 1 {
		t.Errorf("expected weight clamped to 1, got %g", req.FusionWeight())
	}

	req, err = NewRequest("/p", "q", 0.3, 10, true, -0.5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.FusionWeight() != 0 {
		t.Errorf("expected weight clamped to 0, got %g", req.FusionWeight())
	}
}

func TestNewRequest_DefaultTopK(t *testing.T) {
	req, err := NewRequest("/p", "q", 0.3, 10, true, 0.3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.TopKLabels() != DefaultTopKLabels {
		t.Errorf("expected default top-k %d, got %d", DefaultTopKLabels, req.TopKLabels())
	}
}

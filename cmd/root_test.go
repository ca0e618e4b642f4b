package cmd

import "testing"

func TestParseBBox(t *testing.T) {
	sector, err := parseBBox("10, 30, 20, 40")
	if err != nil {
		t.Fatalf("parseBBox failed: %v", err)
	}
	if sector.MinLatitude != 10 || sector.MinLongitude != 30 || sector.MaxLatitude != 20 || sector.MaxLongitude != 40 {
		t.Errorf("Unexpected sector: %+v", sector)
	}

	if _, err := parseBBox("10,30,20"); err == nil {
		t.Errorf("Expected error for short bbox")
	}
	if _, err := parseBBox("a,b,c,d"); err == nil {
		t.Errorf("Expected error for non-numeric bbox")
	}
	if _, err := parseBBox("20,30,10,40"); err == nil {
		t.Errorf("Expected error for inverted latitudes")
	}
}

package gamepad

import "testing"

func TestEnumerateStandardLayout(t *testing.T) {
	dev := Device{ID: 0, Buttons: 16, Axes: 4, Standard: true}
	slots := Enumerate(dev)

	if len(slots) != 20 {
		t.Fatalf("enumerated %d slots, want 20", len(slots))
	}
	for i := 0; i < 16; i++ {
		if slots[i].Kind != Button || slots[i].Index != i {
			t.Fatalf("slot %d = %s %d, want button %d", i, slots[i].Kind, slots[i].Index, i)
		}
	}
	for i := 16; i < 20; i++ {
		if slots[i].Kind != Axis || slots[i].Index != i-16 {
			t.Fatalf("slot %d = %s %d, want axis %d", i, slots[i].Kind, slots[i].Index, i-16)
		}
	}

	if slots[0].Label != "A" {
		t.Fatalf("button 0 labeled %q, want A", slots[0].Label)
	}
	if slots[13].Label != "D-Pad Down" {
		t.Fatalf("button 13 labeled %q, want D-Pad Down", slots[13].Label)
	}
	if slots[17].Label != "Left Stick Y" {
		t.Fatalf("axis 1 labeled %q, want Left Stick Y", slots[17].Label)
	}
}

func TestEnumeratePositionalLabels(t *testing.T) {
	dev := Device{ID: 1, Buttons: 3, Axes: 2, Standard: false}
	slots := Enumerate(dev)

	if len(slots) != 5 {
		t.Fatalf("enumerated %d slots, want 5", len(slots))
	}
	if slots[2].Label != "Button 2" {
		t.Fatalf("button 2 labeled %q, want Button 2", slots[2].Label)
	}
	if slots[4].Label != "Axis 1" {
		t.Fatalf("axis 1 labeled %q, want Axis 1", slots[4].Label)
	}
}

func TestEnumerateBeyondCuratedNames(t *testing.T) {
	// A standard-flagged device can still report more inputs than the
	// curated list covers; those fall back to positional labels.
	dev := Device{ID: 2, Buttons: 20, Axes: 6, Standard: true}
	slots := Enumerate(dev)

	if slots[18].Label != "Button 18" {
		t.Fatalf("button 18 labeled %q, want Button 18", slots[18].Label)
	}
	if slots[25].Label != "Axis 5" {
		t.Fatalf("axis 5 labeled %q, want Axis 5", slots[25].Label)
	}
}

func TestEnumerateReturnsFreshSlice(t *testing.T) {
	dev := Device{ID: 0, Buttons: 2, Axes: 1, Standard: false}
	a := Enumerate(dev)
	b := Enumerate(dev)

	a[0].Label = "scribbled"
	if b[0].Label == "scribbled" {
		t.Fatalf("enumerations share backing storage")
	}
}

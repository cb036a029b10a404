package gamepad

import "testing"

func TestNeutralStateShape(t *testing.T) {
	st := NeutralState(16, 4)
	if len(st.Buttons) != 16 || len(st.Axes) != 4 {
		t.Fatalf("NeutralState(16, 4) shaped %d/%d", len(st.Buttons), len(st.Axes))
	}
	for i, v := range st.Buttons {
		if v != 0 {
			t.Fatalf("button %d = %v, want 0", i, v)
		}
	}
	for i, v := range st.Axes {
		if v != 0 {
			t.Fatalf("axis %d = %v, want 0", i, v)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	st := NeutralState(2, 2)
	st.Buttons[0] = 1
	st.Axes[1] = -0.5

	c := st.Clone()
	st.Buttons[0] = 0
	st.Axes[1] = 0.9

	if c.Buttons[0] != 1 {
		t.Fatalf("clone button mutated with original")
	}
	if c.Axes[1] != -0.5 {
		t.Fatalf("clone axis mutated with original")
	}
}

func TestOutOfRangeReadsAreNeutral(t *testing.T) {
	st := NeutralState(2, 2)
	st.Buttons[1] = 1
	st.Axes[0] = 0.75

	cases := []struct {
		name string
		got  float64
	}{
		{"button unassigned", st.Button(-1)},
		{"button past end", st.Button(5)},
		{"axis unassigned", st.Axis(-1)},
		{"axis past end", st.Axis(17)},
	}
	for _, tc := range cases {
		if tc.got != 0 {
			t.Errorf("%s = %v, want 0", tc.name, tc.got)
		}
	}
	if st.Button(1) != 1 || st.Axis(0) != 0.75 {
		t.Fatalf("in-range reads altered")
	}
}

func TestEqualUsesAnalogTolerance(t *testing.T) {
	a := NeutralState(1, 1)
	b := NeutralState(1, 1)

	b.Axes[0] = 0.005
	if !a.Equal(b) {
		t.Fatalf("jitter below tolerance reported as change")
	}

	b.Axes[0] = 0.02
	if a.Equal(b) {
		t.Fatalf("movement above tolerance not reported")
	}

	b = NeutralState(1, 2)
	if a.Equal(b) {
		t.Fatalf("shape mismatch reported equal")
	}
}

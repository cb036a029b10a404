package gamepad

import "testing"

func TestDeviceIdentityFormat(t *testing.T) {
	got := DeviceIdentity("Test Pad", 16, 4)
	if got != "Test Pad [16b 4a]" {
		t.Fatalf("DeviceIdentity = %q, want %q", got, "Test Pad [16b 4a]")
	}
}

func TestStandardLayoutDetection(t *testing.T) {
	cases := []struct {
		name    string
		buttons int
		axes    int
		want    bool
	}{
		{"Xbox Wireless Controller", 11, 6, true},
		{"Sony DualSense", 13, 6, true},
		{"PLAYSTATION(R)3 Controller", 17, 4, true},
		{"NoName USB Pad", 17, 4, true},
		{"NoName USB Pad", 12, 4, false},
		{"Flight Throttle", 8, 7, false},
		{"Xbox-shaped toy", 11, 2, false},
	}
	for _, tc := range cases {
		if got := standardLayout(tc.name, tc.buttons, tc.axes); got != tc.want {
			t.Errorf("standardLayout(%q, %d, %d) = %v, want %v", tc.name, tc.buttons, tc.axes, got, tc.want)
		}
	}
}

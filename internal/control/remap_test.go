package control

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
)

func newTestRemapper() *Remapper {
	return NewRemapper(DefaultMapping(), DefaultRemapConfig())
}

func TestAssignClearsConflict(t *testing.T) {
	r := newTestRemapper()
	res, err := r.Assign(Horn, gamepad.Button, 0)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(res.Cleared) != 1 || res.Cleared[0] != Use {
		t.Fatalf("cleared = %v, want [use]", res.Cleared)
	}
	m := r.Mapping()
	if got := m[Horn]; got.Kind != gamepad.Button || got.Index != 0 {
		t.Errorf("horn = %+v, want button 0", got)
	}
	if got := m[Use]; got.Assigned() {
		t.Errorf("use still assigned after losing its button: %+v", got)
	}
}

func TestAssignSharedInputKept(t *testing.T) {
	r := newTestRemapper()
	res, err := r.Assign(Forward, gamepad.Axis, 1)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(res.Cleared) != 0 {
		t.Fatalf("cleared = %v, want none", res.Cleared)
	}
	m := r.Mapping()
	if got := m[Backward]; !got.Assigned() || got.Index != 1 {
		t.Errorf("backward displaced despite mutual sharing: %+v", got)
	}
}

func TestAssignAxisInstallsFreshConfig(t *testing.T) {
	r := newTestRemapper()
	if err := r.SetAxisConfig(CameraPan, AxisConfig{Min: -0.5, Max: 0.5, Mode: FullRange, Deadzone: 0.3}); err != nil {
		t.Fatalf("SetAxisConfig: %v", err)
	}
	if _, err := r.Assign(CameraPan, gamepad.Axis, 5); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got := r.Mapping()[CameraPan]
	if got.Index != 5 || got.Axis == nil {
		t.Fatalf("cameraPan = %+v, want axis 5 with config", got)
	}
	if got.Axis.Deadzone == 0.3 {
		t.Error("reassignment inherited the previous tuning instead of defaults")
	}
}

func TestAssignUnknownAction(t *testing.T) {
	r := newTestRemapper()
	if _, err := r.Assign("warp", gamepad.Button, 1); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
	if err := r.StartListening("warp", "", gamepad.NeutralState(4, 2)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("StartListening err = %v, want ErrUnknownAction", err)
	}
	if r.State() != Idle {
		t.Errorf("state = %v after rejected listen, want idle", r.State())
	}
}

func TestCaptureButton(t *testing.T) {
	r := newTestRemapper()
	if _, err := r.Assign(Horn, gamepad.Button, 5); err != nil {
		t.Fatalf("seed horn: %v", err)
	}
	neutral := gamepad.NeutralState(8, 4)
	if err := r.StartListening(Use, "", neutral); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	pressed := gamepad.NeutralState(8, 4)
	pressed.Buttons[5] = 1
	res, ok := r.Observe(neutral, pressed)
	if !ok {
		t.Fatal("press not captured")
	}
	if res.Action != Use || res.Kind != gamepad.Button || res.Index != 5 {
		t.Fatalf("capture = %+v, want use on button 5", res)
	}
	if len(res.Cleared) != 1 || res.Cleared[0] != Horn {
		t.Errorf("cleared = %v, want [horn]", res.Cleared)
	}
	if r.State() != Idle {
		t.Errorf("state = %v after capture, want idle", r.State())
	}
	m := r.Mapping()
	if got := m[Use]; got.Kind != gamepad.Button || got.Index != 5 {
		t.Errorf("use = %+v, want button 5", got)
	}
	if m[Horn].Assigned() {
		t.Error("horn kept button 5 without mutual sharing")
	}
}

func TestCaptureIgnoresHeldButton(t *testing.T) {
	r := newTestRemapper()
	held := gamepad.NeutralState(8, 4)
	held.Buttons[2] = 1
	if err := r.StartListening(Use, "", held); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	if _, ok := r.Observe(held, held.Clone()); ok {
		t.Fatal("held button captured without a fresh press")
	}
	released := gamepad.NeutralState(8, 4)
	if _, ok := r.Observe(held, released); ok {
		t.Fatal("release captured as a press")
	}
	pressed := gamepad.NeutralState(8, 4)
	pressed.Buttons[2] = 1
	if res, ok := r.Observe(released, pressed); !ok || res.Index != 2 {
		t.Fatalf("fresh press not captured: %+v ok=%v", res, ok)
	}
}

func TestCaptureAxisNeedsDeflectionFromBaseline(t *testing.T) {
	r := newTestRemapper()
	resting := gamepad.NeutralState(4, 4)
	resting.Axes[2] = 0.6
	if err := r.StartListening(CameraPan, "", resting); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	drift := resting.Clone()
	drift.Axes[2] = 1
	if _, ok := r.Observe(resting, drift); ok {
		t.Fatal("0.4 drift from baseline captured, want threshold 0.7")
	}
	push := resting.Clone()
	push.Axes[3] = 0.8
	res, ok := r.Observe(drift, push)
	if !ok || res.Kind != gamepad.Axis || res.Index != 3 {
		t.Fatalf("deliberate push not captured: %+v ok=%v", res, ok)
	}
	got := r.Mapping()[CameraPan]
	if got.Index != 3 || got.Axis == nil {
		t.Fatalf("cameraPan = %+v, want axis 3 with fresh config", got)
	}
}

func TestCaptureEitherHonorsPreferredKind(t *testing.T) {
	r := newTestRemapper()
	neutral := gamepad.NeutralState(8, 4)
	if err := r.StartListening(Boost, gamepad.Axis, neutral); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	pressed := gamepad.NeutralState(8, 4)
	pressed.Buttons[6] = 1
	if _, ok := r.Observe(neutral, pressed); ok {
		t.Fatal("axis-preferring session captured a button")
	}
	moved := gamepad.NeutralState(8, 4)
	moved.Axes[2] = 0.9
	res, ok := r.Observe(pressed, moved)
	if !ok || res.Kind != gamepad.Axis || res.Index != 2 {
		t.Fatalf("capture = %+v ok=%v, want axis 2", res, ok)
	}
	got := r.Mapping()[Boost]
	if got.Kind != gamepad.Axis || got.Axis == nil {
		t.Errorf("boost on axis has no tuning: %+v", got)
	}
	if r.Mapping()[CameraPan].Assigned() {
		t.Error("cameraPan kept axis 2 without sharing boost")
	}
}

func TestCancelKeepsMapping(t *testing.T) {
	r := newTestRemapper()
	before := r.Mapping()
	if err := r.StartListening(Horn, "", gamepad.NeutralState(8, 4)); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	r.Cancel()
	if r.State() != Idle {
		t.Errorf("state = %v after cancel, want idle", r.State())
	}
	if !before.Equal(r.Mapping()) {
		t.Error("cancel changed the mapping")
	}
	pressed := gamepad.NeutralState(8, 4)
	pressed.Buttons[1] = 1
	if _, ok := r.Observe(gamepad.NeutralState(8, 4), pressed); ok {
		t.Error("idle remapper captured input")
	}
}

func TestStartListeningReplacesSession(t *testing.T) {
	r := newTestRemapper()
	neutral := gamepad.NeutralState(8, 4)
	if err := r.StartListening(Use, "", neutral); err != nil {
		t.Fatalf("first listen: %v", err)
	}
	if err := r.StartListening(Horn, "", neutral); err != nil {
		t.Fatalf("second listen: %v", err)
	}
	target, ok := r.Target()
	if !ok || target != Horn {
		t.Fatalf("target = %v ok=%v, want horn", target, ok)
	}
	pressed := gamepad.NeutralState(8, 4)
	pressed.Buttons[4] = 1
	res, ok := r.Observe(neutral, pressed)
	if !ok || res.Action != Horn {
		t.Fatalf("capture went to %v, want horn", res.Action)
	}
	if got := r.Mapping()[Use]; got.Index != 0 {
		t.Errorf("use rebound by a replaced session: %+v", got)
	}
}

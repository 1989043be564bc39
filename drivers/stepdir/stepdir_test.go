package stepdir

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"stepkit/core"
)

// recordingPin counts rising edges on top of the gpiotest fake.
type recordingPin struct {
	gpiotest.Pin
	rises int
	last  gpio.Level
}

func (p *recordingPin) Out(l gpio.Level) error {
	if l == gpio.High && p.last == gpio.Low {
		p.rises++
	}
	p.last = l
	return p.Pin.Out(l)
}

func newPins() (step, dir, en *recordingPin) {
	step = &recordingPin{Pin: gpiotest.Pin{N: "STEP", Num: 2}}
	dir = &recordingPin{Pin: gpiotest.Pin{N: "DIR", Num: 3}}
	en = &recordingPin{Pin: gpiotest.Pin{N: "EN", Num: 4}}
	return
}

func TestNewValidation(t *testing.T) {
	step, dir, _ := newPins()

	if _, err := New(Config{Dir: dir}); err != ErrNoStepPin {
		t.Errorf("missing step pin: got %v", err)
	}
	if _, err := New(Config{Step: step}); err != ErrNoDirPin {
		t.Errorf("missing dir pin: got %v", err)
	}
	if _, err := New(Config{Step: step, Dir: dir}); err != nil {
		t.Errorf("enable pin should be optional: %v", err)
	}
}

func TestInitIdleLevels(t *testing.T) {
	step, dir, en := newPins()
	d, _ := New(Config{Step: step, Dir: dir, Enable: en, InvertEnable: true})

	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if step.Pin.L != gpio.Low {
		t.Error("step pin should idle low")
	}
	if dir.Pin.L != gpio.High {
		t.Error("dir pin should idle forward")
	}
	if en.Pin.L != gpio.High {
		t.Error("inverted enable should idle high (motor off)")
	}
}

func TestStepPulseEdges(t *testing.T) {
	step, dir, _ := newPins()
	d, _ := New(Config{Step: step, Dir: dir})
	_ = d.Init()

	for i := 0; i < 5; i++ {
		d.StepPulse()
	}
	if step.rises != 5 {
		t.Errorf("rising edges = %d, want 5", step.rises)
	}
	if step.Pin.L != gpio.Low {
		t.Error("step pin must return to idle after a pulse")
	}
}

func TestInvertedStepPulse(t *testing.T) {
	step, dir, _ := newPins()
	step.last = gpio.High // inverted idle
	d, _ := New(Config{Step: step, Dir: dir, InvertStep: true})
	_ = d.Init()

	d.StepPulse()
	if step.Pin.L != gpio.High {
		t.Error("inverted step pin must idle high")
	}
}

func TestSetDir(t *testing.T) {
	step, dir, _ := newPins()
	d, _ := New(Config{Step: step, Dir: dir, InvertDir: true})

	d.SetDir(true)
	if dir.Pin.L != gpio.Low {
		t.Error("inverted forward should drive low")
	}
	d.SetDir(false)
	if dir.Pin.L != gpio.High {
		t.Error("inverted reverse should drive high")
	}
}

func TestSetEnable(t *testing.T) {
	step, dir, en := newPins()
	d, _ := New(Config{Step: step, Dir: dir, Enable: en})

	d.SetEnable(true)
	if en.Pin.L != gpio.High {
		t.Error("enable should drive high")
	}
	d.SetEnable(false)
	if en.Pin.L != gpio.Low {
		t.Error("disable should drive low")
	}

	// No enable pin: must not panic.
	bare, _ := New(Config{Step: step, Dir: dir})
	bare.SetEnable(true)
}

func TestDrivesAnAxis(t *testing.T) {
	step, dir, en := newPins()
	d, err := New(Config{Step: step, Dir: dir, Enable: en})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	axis, err := core.NewAxis(0, d)
	if err != nil {
		t.Fatalf("NewAxis failed: %v", err)
	}

	axis.Enable(true)
	axis.SetSpeed(100)
	axis.MoveTo(25)
	axis.Update(2500)

	if step.rises != 25 {
		t.Errorf("pulses = %d, want 25", step.rises)
	}
	if axis.Busy() || axis.Position() != 25 {
		t.Errorf("busy=%v position=%d after move", axis.Busy(), axis.Position())
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjeanneret/SortGo/internal/config"
	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/display"
	"github.com/cjeanneret/SortGo/internal/hw/echo"
	"github.com/cjeanneret/SortGo/internal/hw/gpio"
	"github.com/cjeanneret/SortGo/internal/hw/indicator"
	"github.com/cjeanneret/SortGo/internal/hw/servo"
	"github.com/cjeanneret/SortGo/internal/hw/sonar"
	"github.com/cjeanneret/SortGo/internal/hw/timebase"
	"github.com/cjeanneret/SortGo/internal/logic/actuation"
	"github.com/cjeanneret/SortGo/internal/logic/rangeconv"
	"github.com/cjeanneret/SortGo/internal/logic/sorter"
)

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "path to a config file in a configs/ directory (default: built-in bench config)")
	cycles := flag.Int("cycles", 0, "number of sorting cycles, 0 = run until interrupted")
	debugLevel := flag.Int("debug", -1, "override debug level (0-4)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *cycles < 0 {
		log.Fatalf("invalid -cycles %d: must be >= 0", *cycles)
	}
	if *debugLevel >= 0 {
		cfg.Defaults.DebugLevel = *debugLevel
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", configName(*cfgPath))
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)

	forceMocks(cfg)
	r, err := buildRig(cfg)
	if err != nil {
		log.Fatalf("init hardware failed: %v", err)
	}
	defer r.close()

	if err := r.ctrl.Run(ctx, *cycles); err != nil {
		log.Fatalf("sorter: %v", err)
	}
}

func configName(path string) string {
	if path == "" {
		return "(built-in)"
	}
	return path
}

// loadConfig returns the built-in config for an empty path.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// rig is the wired application and the resources to release on exit.
type rig struct {
	ctrl     *sorter.Controller
	closers  []namedCloser
	released []string
}

type namedCloser struct {
	name string
	io.Closer
}

func (r *rig) close() {
	// Release in reverse order: devices first, the GPIO driver last.
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.Close(); err != nil {
			log.Printf("closing %s failed: %v", c.name, err)
		}
		r.released = append(r.released, c.name)
	}
	r.closers = nil
}

func (r *rig) keep(name string, c any) {
	if cl, ok := c.(io.Closer); ok {
		r.closers = append(r.closers, namedCloser{name: name, Closer: cl})
	}
}

// forceMocks replaces every backend by its mock when mock_gpio is set.
func forceMocks(cfg *config.Config) {
	if !cfg.Defaults.MockGPIO {
		return
	}
	cfg.Echo.Type = config.EchoMock
	cfg.Servo.Type = config.ServoMock
	cfg.Display.Type = config.DisplayMock
}

// buildRig wires every component described by cfg. On failure the
// resources opened so far are released.
func buildRig(cfg *config.Config) (*rig, error) {
	rg := &rig{}
	if err := rg.build(cfg); err != nil {
		rg.close()
		return nil, err
	}
	return rg, nil
}

func (r *rig) build(cfg *config.Config) error {
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return fmt.Errorf("init GPIO: %w", err)
	}
	r.keep("gpio", gpioDriver)

	debug.Step(2, "Initializing echo capture")
	line, err := newEchoLineFromConfig(cfg, gpioDriver)
	if err != nil {
		return fmt.Errorf("init echo line: %w", err)
	}
	debug.PrintStruct("Echo config", cfg.Echo)
	tb := newTimeBaseFromConfig(cfg)
	capture := echo.NewCapture(line, tb)
	r.keep("echo", capture)
	debug.Value("Kernel timestamps", capture.Stamped())

	var trig sorter.Trigger = sonar.NewTrigger(gpioDriver, cfg.Trigger.Pin, cfg.TriggerWidth())
	if ml, ok := line.(*gpio.MockLine); ok {
		trig = newSimSensor(trig, ml, rangeconv.Distance(cfg.Echo.SimDistanceCm))
	}
	debug.Value("Trigger pin", cfg.Trigger.Pin)
	debug.Value("Trigger width", cfg.TriggerWidth())

	debug.Step(3, "Initializing servo")
	flap, err := newServoFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init servo: %w", err)
	}
	r.keep("servo", flap)
	debug.Value("Servo type", cfg.Servo.Type)

	debug.Step(4, "Initializing display")
	lcd, err := newDisplayFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	r.keep("display", lcd)
	debug.Value("Display type", cfg.Display.Type)

	debug.Step(5, "Initializing indicators and conveyor")
	leds, err := indicator.NewLEDBank(gpioDriver, cfg.Indicator.LEDPins)
	if err != nil {
		return fmt.Errorf("init LEDs: %w", err)
	}
	buzzer := indicator.NewBuzzer(gpioDriver, cfg.Indicator.BuzzerPin, cfg.BeepDuration())
	belt := indicator.NewBelt(indicator.NewMotor(gpioDriver, cfg.Motor.In1Pin, cfg.Motor.In2Pin), cfg.Motor.Reverse)
	debug.PrintStruct("Indicator config", cfg.Indicator)
	debug.PrintStruct("Motor config", cfg.Motor)

	act := actuation.New(flap, leds, buzzer, belt, lcd)
	act.SetDisplaySettle(cfg.DisplaySettle())

	debug.Step(6, "Creating sorting controller")
	params := sorter.DefaultParams()
	debug.PrintStruct("Sorter params", params)
	r.ctrl = sorter.NewController(capture, trig, tb, act, params)
	r.ctrl.SetConverter(rangeconv.Converter{
		MinEchoWidth: timebase.Tick(cfg.Echo.MinWidthTicks),
		MinRange:     rangeconv.MinRange,
		MaxRange:     rangeconv.MaxRange,
	})
	return nil
}

// newEchoLineFromConfig selects the interrupt line backend.
func newEchoLineFromConfig(cfg *config.Config, drv gpio.Driver) (gpio.EdgeLine, error) {
	switch cfg.Echo.Type {
	case config.EchoCdev:
		return gpio.NewCdevLine(cfg.Echo.Chip, cfg.Echo.Pin)
	case config.EchoPeriph:
		return gpio.OpenPeriphLine(cfg.Echo.Name)
	case config.EchoRPi:
		rd, ok := drv.(*gpio.RPiDriver)
		if !ok {
			return nil, errors.New("echo type rpio needs the go-rpio driver (mock_gpio: false)")
		}
		return rd.OpenLine(cfg.Echo.Pin, cfg.EchoPoll())
	case config.EchoMock:
		return &gpio.MockLine{}, nil
	default:
		return nil, fmt.Errorf("unsupported echo type: %s", cfg.Echo.Type)
	}
}

// newTimeBaseFromConfig picks the kernel clock for cdev lines, whose
// events carry CLOCK_MONOTONIC stamps, and the free-running counter
// otherwise.
func newTimeBaseFromConfig(cfg *config.Config) timebase.TimeBase {
	if cfg.Echo.Type == config.EchoCdev {
		return timebase.NewMonotonic()
	}
	return timebase.NewCounter()
}

// newServoFromConfig selects a servo implementation based on configuration.
func newServoFromConfig(cfg *config.Config) (servo.Servo, error) {
	switch cfg.Servo.Type {
	case config.ServoRPi:
		return servo.NewRPiPWM(cfg.Servo.Pin)
	case config.ServoPCA9685:
		return servo.OpenPCA9685(cfg.Servo.I2CBus, cfg.Servo.Address, cfg.Servo.Channel)
	case config.ServoMock:
		return &servo.Mock{}, nil
	default:
		return nil, fmt.Errorf("unsupported servo type: %s", cfg.Servo.Type)
	}
}

// newDisplayFromConfig selects a display implementation based on configuration.
func newDisplayFromConfig(cfg *config.Config) (display.Display, error) {
	switch cfg.Display.Type {
	case config.DisplayHD44780:
		return display.OpenHD44780(cfg.Display.I2CBus, cfg.Display.Address)
	case config.DisplaySerial:
		return display.OpenSerialLCD(cfg.Display.Port, cfg.Display.Baud)
	case config.DisplayMock:
		return display.NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported display type: %s", cfg.Display.Type)
	}
}

// simSensor answers each trigger pulse with an echo on the mock line, as
// a sensor facing a target at a fixed distance would. A zero distance
// never echoes.
type simSensor struct {
	trig  sorter.Trigger
	line  *gpio.MockLine
	width time.Duration
}

func newSimSensor(trig sorter.Trigger, line *gpio.MockLine, d rangeconv.Distance) *simSensor {
	s := &simSensor{trig: trig, line: line}
	if d > 0 {
		s.width = timebase.Duration(rangeconv.WidthFor(d))
	}
	debug.Info("Simulated target at %v", d)
	return s
}

func (s *simSensor) Pulse() error {
	if err := s.trig.Pulse(); err != nil {
		return err
	}
	if s.width == 0 {
		return nil
	}
	if !s.line.Fire(gpio.RisingEdge) {
		return errors.New("simulated echo: line not armed")
	}
	time.Sleep(s.width)
	s.line.Fire(gpio.FallingEdge)
	return nil
}

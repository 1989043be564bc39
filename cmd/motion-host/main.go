// Command motion-host wires a configured axis table to real hardware and
// runs the periodic update loop. It is the thin application glue around the
// core engine: construct drivers, bind axes, fan commands through a group.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"stepkit/config"
	"stepkit/core"
	"stepkit/drivers/stepdir"
	"stepkit/drivers/tmc5240"
)

var (
	configPath = flag.String("config", "axes.yaml", "Axis table configuration file")
	target     = flag.Int("target", 0, "Absolute target position to move every axis to")
	dumpRegs   = flag.Bool("dump-regs", false, "Dump smart-driver registers after the move")
)

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if _, err := host.Init(); err != nil {
		logger.Fatal("Failed to initialize host drivers", zap.Error(err))
	}

	var group core.Group
	var smart []*tmc5240.Driver

	for _, axCfg := range cfg.Axes {
		axis, drv, err := buildAxis(axCfg, logger)
		if err != nil {
			logger.Fatal("Failed to build axis",
				zap.String("axis", axCfg.Name), zap.Error(err))
		}
		if drv != nil {
			smart = append(smart, drv)
		}
		if !group.Add(axis) {
			logger.Fatal("Group is full", zap.String("axis", axCfg.Name))
		}
		logger.Info("Axis ready",
			zap.String("axis", axCfg.Name),
			zap.Uint8("id", axCfg.ID),
			zap.String("driver", axCfg.Driver))
	}

	group.Enable(true)
	defer group.Enable(false)

	group.MoveTo(int32(*target))
	logger.Info("Move commanded", zap.Int("target", *target))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-sig:
			logger.Info("Interrupted, stopping axes")
			return
		case now := <-ticker.C:
			elapsed := uint32(now.Sub(prev).Microseconds())
			prev = now
			if !group.Update(elapsed) {
				logger.Info("All axes idle")
				if *dumpRegs {
					for _, d := range smart {
						d.DumpRegisters()
					}
				}
				return
			}
		}
	}
}

// buildAxis constructs the configured driver and binds it to a new axis.
// The returned tmc5240 driver is non-nil only for smart axes, for register
// dumping after the move.
func buildAxis(axCfg config.AxisConfig, logger *zap.Logger) (*core.Axis, *tmc5240.Driver, error) {
	switch axCfg.Driver {
	case config.DriverTMC5240:
		var bus tmc5240.Bus
		if axCfg.SPIPort != "" {
			port, err := spireg.Open(axCfg.SPIPort)
			if err != nil {
				return nil, nil, fmt.Errorf("open spi %s: %w", axCfg.SPIPort, err)
			}
			bus, err = tmc5240.NewSPIBus(port)
			if err != nil {
				return nil, nil, err
			}
		} else {
			var err error
			bus, err = tmc5240.OpenUART(axCfg.UARTDevice, axCfg.UARTBaud, axCfg.UARTNode)
			if err != nil {
				return nil, nil, err
			}
		}

		drv, err := tmc5240.New(bus, tmc5240.Config{
			VMax: axCfg.VMax,
			AMax: axCfg.AMax,
			DMax: axCfg.DMax,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		axis, err := core.NewAxis(axCfg.ID, drv)
		if err != nil {
			return nil, nil, err
		}
		if axCfg.Limits {
			axis.EnableLimits()
		}
		return axis, drv, nil

	case config.DriverStepDir:
		pins := stepdir.Config{
			Step:         pinByName(axCfg.StepPin),
			Dir:          pinByName(axCfg.DirPin),
			InvertStep:   axCfg.InvertStep,
			InvertDir:    axCfg.InvertDir,
			InvertEnable: axCfg.InvertEnable,
		}
		if axCfg.EnablePin != "" {
			pins.Enable = pinByName(axCfg.EnablePin)
		}
		if pins.Step == nil || pins.Dir == nil {
			return nil, nil, fmt.Errorf("unknown pin %q or %q", axCfg.StepPin, axCfg.DirPin)
		}

		drv, err := stepdir.New(pins)
		if err != nil {
			return nil, nil, err
		}

		axis, err := core.NewAxis(axCfg.ID, drv)
		if err != nil {
			return nil, nil, err
		}
		axis.SetSpeed(axCfg.USPerStep)
		if axCfg.Limits {
			axis.EnableLimits()
		}
		return axis, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown driver %q", axCfg.Driver)
	}
}

func pinByName(name string) gpio.PinOut {
	if name == "" {
		return nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil
	}
	return p
}

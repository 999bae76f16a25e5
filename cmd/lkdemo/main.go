// Command lkdemo mirrors potentiometer positions onto the pad LEDs and
// logs keyboard presses, exercising the launchkey library end to end
// against connected hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"

	"github.com/padctl/launchkey"
	"github.com/padctl/launchkey/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (default: per-user config)")
	listPorts := flag.Bool("list-ports", false, "list available MIDI ports and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	defer midi.CloseDriver()

	if *listPorts {
		for _, name := range launchkey.InPorts() {
			fmt.Println("in: ", name)
		}
		for _, name := range launchkey.OutPorts() {
			fmt.Println("out:", name)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	palette := cfg.Palette

	dev := launchkey.New(
		launchkey.WithPorts(cfg.KeyboardPort, cfg.ControlPort, cfg.OutputPort),
		launchkey.WithLogger(log),
		launchkey.WithAlwaysInControl(cfg.AlwaysInControl),
	)

	// Mirror each potentiometer onto its pad column: the top row sweeps up
	// the palette, the bottom row down.
	subscribe(log, dev, launchkey.ChannelPotentiometerChange, func(ev launchkey.Event) {
		pc := ev.(launchkey.PotentiometerChangeEvent)
		i := int(float64(pc.Value) / 127 * float64(len(palette)-1))
		if err := dev.SetLed(pc.Index, launchkey.RowTop, palette[i]); err != nil {
			log.WithError(err).Debug("set top led")
		}
		if err := dev.SetLed(pc.Index, launchkey.RowBottom, palette[len(palette)-i-1]); err != nil {
			log.WithError(err).Debug("set bottom led")
		}
	})

	subscribe(log, dev, launchkey.ChannelKeyboardPress, func(ev launchkey.Event) {
		kp := ev.(launchkey.KeyboardPressEvent)
		if kp.State == launchkey.StateDown {
			log.Infof("keyboard press: note=%d velocity=%d", kp.Note, kp.Velocity)
		}
	})

	subscribe(log, dev, launchkey.ChannelModeSwitch, func(ev launchkey.Event) {
		ms := ev.(launchkey.ModeSwitchEvent)
		log.Infof("mode switch: %s", ms.Mode)
	})

	subscribe(log, dev, launchkey.ChannelConnect, func(launchkey.Event) {
		log.Info("device ready")
	})

	if err := dev.Open(); err != nil {
		log.Fatalf("open device: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dev.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("run: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func subscribe(log *logrus.Logger, dev *launchkey.Device, ch launchkey.Channel, fn launchkey.Handler) {
	if _, err := dev.Subscribe(ch, fn); err != nil {
		log.Fatalf("subscribe %s: %v", ch, err)
	}
}

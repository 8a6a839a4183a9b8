// Command smartgadget runs the driver's read sequence against a
// simulated Smart Gadget: scan, connect, optional discovery, battery,
// temperature and humidity reads, then disconnect. It is the reference
// orchestration for wiring the driver to a real Radio implementation.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/rigado/smartgadget"
	"github.com/rigado/smartgadget/cache"
	"github.com/rigado/smartgadget/profile"
	"github.com/rigado/smartgadget/sim"
)

func main() {
	app := cli.NewApp()
	app.Name = "smartgadget"
	app.Usage = "read battery, temperature and humidity from a Smart Gadget"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr",
			Value: "de:15:e4:b1:d6:67",
			Usage: "address of the gadget",
		},
		cli.BoolFlag{
			Name:  "no-scan",
			Usage: "connect directly without scanning first",
		},
		cli.BoolFlag{
			Name:  "discover",
			Usage: "run service and characteristic discovery before reading",
		},
		cli.DurationFlag{
			Name:  "watch",
			Usage: "after reading, subscribe to notifications for this long",
		},
		cli.StringFlag{
			Name:  "profile",
			Usage: "peripheral profile YAML, defaults to the built-in Smart Gadget profile",
		},
		cli.StringFlag{
			Name:  "cache",
			Usage: "file to persist discovery results to",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log all radio events",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("verbose") {
		smartgadget.SetLogLevelMax()
	}

	prof := profile.SmartGadget()
	if path := c.String("profile"); path != "" {
		var err error
		if prof, err = profile.Load(path); err != nil {
			return err
		}
	}

	gadget := sim.NewGadget(c.String("addr"))
	gadget.Profile = prof
	defer gadget.Close()

	opts := []smartgadget.Option{smartgadget.WithProfile(prof)}
	if path := c.String("cache"); path != "" {
		opts = append(opts, smartgadget.WithCache(cache.New(path)))
	}

	d, err := smartgadget.New(gadget, opts...)
	if err != nil {
		return err
	}

	target := smartgadget.NewAddr(c.String("addr"))
	d.SetSearchAddress(target)

	if !c.Bool("no-scan") {
		fmt.Printf("searching for %v...\n", target)
		d.Scan(d.NoteScanDone)
		if !d.WaitForState(smartgadget.StateScanDone, 2500*time.Millisecond) {
			return fmt.Errorf("scan timeout")
		}
		if !d.AddressFound() {
			return fmt.Errorf("gadget not found")
		}
		fmt.Printf("found %q, rssi %d dBm\n", d.Name(), d.RSSI())
	}

	if ok := d.Connect(smartgadget.AddrTypeRandom, target, nil); !ok {
		return fmt.Errorf("connect request failed")
	}
	if !d.WaitForConnection(true, 5*time.Second) {
		return fmt.Errorf("connection failed")
	}
	fmt.Println("connected")

	if c.Bool("discover") {
		d.SetSearchService(smartgadget.MustParseUUID(prof.Services.Humidity))
		d.DiscoverServices(nil)
		if !d.WaitForState(smartgadget.StateServiceDiscoveryDone, 2500*time.Millisecond) {
			return fmt.Errorf("service discovery failed")
		}
		for uuid, hh := range d.Services() {
			fmt.Printf("service %s: handles %d..%d\n", uuid, hh[0], hh[1])
		}

		d.DiscoverCharacteristics(1, 0xffff, nil)
		if !d.WaitForState(smartgadget.StateCharacteristicDiscoveryDone, 2500*time.Millisecond) {
			return fmt.Errorf("characteristic discovery failed")
		}
		for uuid, ch := range d.Characteristics() {
			fmt.Printf("characteristic %s: value handle %d, properties %#02x\n", uuid, ch.ValueHandle, ch.Properties)
		}
	}

	d.ReadBatteryLevel(nil)
	if !d.WaitForState(smartgadget.StateBatteryReadDone, 2*time.Second) {
		return fmt.Errorf("reading battery level failed")
	}
	if pct, ok := d.Battery(); ok {
		fmt.Printf("battery: %d%%\n", pct)
	}

	d.ReadTemperature(nil)
	if !d.WaitForState(smartgadget.StateTemperatureReadDone, 2*time.Second) {
		return fmt.Errorf("reading temperature failed")
	}
	if v, ok := d.Temperature(); ok {
		fmt.Printf("temperature: %.2f °C\n", v)
	}

	d.ReadHumidity(nil)
	if !d.WaitForState(smartgadget.StateHumidityReadDone, 2*time.Second) {
		return fmt.Errorf("reading humidity failed")
	}
	if v, ok := d.Humidity(); ok {
		fmt.Printf("humidity: %.2f %%RH\n", v)
	}

	if watch := c.Duration("watch"); watch > 0 {
		fmt.Printf("watching humidity for %v...\n", watch)
		d.OnNotify(func(data []byte) {
			if v, err := smartgadget.DecodeSensorValue(data); err == nil {
				fmt.Printf("notify: %.2f %%RH\n", v)
			}
		})
		stop := time.After(watch)
		tick := time.NewTicker(500 * time.Millisecond)
		defer tick.Stop()
	loop:
		for {
			select {
			case <-stop:
				break loop
			case <-tick.C:
				gadget.PushHumidity(gadget.Humidity + 0.5)
			}
		}
	}

	d.Disconnect()
	if !d.WaitForConnection(false, 10*time.Second) {
		return fmt.Errorf("disconnect failed")
	}
	fmt.Println("disconnected")
	return nil
}

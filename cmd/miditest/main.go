package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-synth/audio"
	gsmidi "go-synth/midi"
	"go-synth/synth"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(filterArg())
	case "tone":
		tone()
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI/audio test scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list              - List all MIDI ports")
	fmt.Println("  monitor [filter]  - Print notes (and their frequencies) from MIDI inputs")
	fmt.Println("  tone              - Play an A major chord for two seconds")
	fmt.Println("  poll              - Poll for device changes")
}

func filterArg() string {
	if len(os.Args) > 2 {
		return os.Args[2]
	}
	return ""
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

// printSink prints what the synth would be asked to play
type printSink struct{}

func (printSink) PostNoteOn(freq, vel float64) bool {
	fmt.Printf("[%s] note on   %8.2f Hz  vel %3.0f  -> key %.2f\n",
		time.Now().Format("15:04:05.000"), freq, vel, synth.Quantize(freq))
	return true
}

func (printSink) PostNoteOff(freq float64) bool {
	fmt.Printf("[%s] note off  %8.2f Hz\n", time.Now().Format("15:04:05.000"), freq)
	return true
}

func monitor(filter string) {
	fmt.Printf("Monitoring MIDI inputs matching %q. Ctrl+C to exit.\n", filter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dm := gsmidi.NewDeviceManager(filter, printSink{})
	go dm.Run(ctx)

	for ev := range dm.Events() {
		switch ev.Type {
		case gsmidi.DeviceConnected:
			fmt.Printf("+ %s (%s)\n", ev.ID, ev.Controller.Type())
		case gsmidi.DeviceDisconnected:
			fmt.Printf("- %s\n", ev.ID)
		}
	}
}

func tone() {
	engine, err := synth.NewEngine(synth.Options{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	engine.SetParams(synth.DefaultParams())

	player, err := audio.NewPlayer(synth.DefaultSampleRate, 20*time.Millisecond, engine)
	if err != nil {
		fmt.Printf("Error opening audio: %v\n", err)
		return
	}
	defer player.Close()

	chord := []float64{220, 277.18, 329.63}
	for _, f := range chord {
		engine.PostNoteOn(f, 100)
	}
	player.Start()
	fmt.Println("Playing A major...")
	time.Sleep(2 * time.Second)

	for _, f := range chord {
		engine.PostNoteOff(f)
	}
	time.Sleep(time.Second)

	if st := engine.Status(); st != nil {
		fmt.Printf("Done! %d samples, dropped:%d lost:%d\n", st.Sample, st.Dropped, st.Lost)
	}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			for _, name := range inNames {
				if strings.Contains(strings.ToLower(name), "launchpad") {
					fmt.Println("  -> Launchpad detected (opens as a note grid)")
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}

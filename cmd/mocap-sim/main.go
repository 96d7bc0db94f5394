package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mocap-track-go/internal/natnet"
	"mocap-track-go/internal/simulator"
)

func main() {
	defaults := simulator.DefaultConfig()
	var (
		endpoint    = flag.String("endpoint", fmt.Sprintf("tcp://*:%d", natnet.DefaultDataPort), "ZMQ PUB bind endpoint")
		rate        = flag.Float64("rate", defaults.Rate, "Frames per second")
		rigidBodies = flag.Int("rigid-bodies", defaults.RigidBodies, "Number of simulated rigid bodies")
		markers     = flag.Int("markers", defaults.MarkersPerBody, "Markers per rigid body")
		unlabeled   = flag.Int("unlabeled", defaults.Unlabeled, "Unlabeled markers per frame")
		dumpDir     = flag.String("dump-dir", "", "Write frames as .cbor files here instead of publishing")
		dumpCount   = flag.Int("dump-count", 10, "Number of frames to write with -dump-dir")
	)
	flag.Parse()

	sim := defaults
	sim.Rate = *rate
	sim.RigidBodies = *rigidBodies
	sim.MarkersPerBody = *markers
	sim.Unlabeled = *unlabeled
	if sim.Rate <= 0 {
		log.Fatal("rate must be positive")
	}

	if *dumpDir != "" {
		if err := dump(*dumpDir, sim, *dumpCount); err != nil {
			log.Fatalf("dump frames: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := natnet.NewPublisher(*endpoint)
	if err != nil {
		log.Fatalf("bind %s: %v", *endpoint, err)
	}
	defer pub.Close()
	log.Printf("publishing %d rigid bodies at %.0f Hz on %s", sim.RigidBodies, sim.Rate, *endpoint)

	var sent, failed int
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	frames := simulator.Stream(ctx, sim)
	for {
		select {
		case <-ticker.C:
			log.Printf("sim stats: sent=%d failed=%d", sent, failed)
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := pub.Publish(frame); err != nil {
				failed++
				continue
			}
			sent++
		}
	}
}

// dump writes count consecutive frames, one CBOR message per file.
func dump(dir string, sim simulator.Config, count int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < count; i++ {
		frame := simulator.Frame(sim, i, float64(i)/sim.Rate, rng)
		payload, err := natnet.EncodeFrame(frame)
		if err != nil {
			return err
		}
		name := filepath.Join(dir, fmt.Sprintf("frame_%06d.cbor", i))
		if err := os.WriteFile(name, payload, 0o644); err != nil {
			return err
		}
	}
	log.Printf("wrote %d frames to %s", count, dir)
	return nil
}

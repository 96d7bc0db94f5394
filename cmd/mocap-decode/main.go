package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"mocap-track-go/internal/natnet"
	"mocap-track-go/internal/types"
)

func main() {
	path := flag.String("path", "", "Path to a CBOR frame file or a directory of them")
	limit := flag.Int("limit", 5, "Max number of frames to print in detail")
	flag.Parse()

	if *path == "" {
		log.Fatal("missing -path")
	}

	files, err := listFiles(*path)
	if err != nil {
		log.Fatalf("list files: %v", err)
	}

	var decoded, failed int
	seen := map[int]bool{}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("read %s: %v", file, err)
			failed++
			continue
		}
		frame, err := natnet.DecodeFrame(data)
		if err != nil {
			log.Printf("decode %s: %v", file, err)
			failed++
			continue
		}
		decoded++
		for _, body := range frame.RigidBodies {
			seen[body.ID] = true
		}
		if decoded <= *limit {
			fmt.Printf("frame %d: %s\n", frame.FrameNumber, file)
			printFrame(frame)
		}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fmt.Printf("summary: frames=%d failed=%d rigid_bodies=%v\n", decoded, failed, ids)
}

func printFrame(frame types.FramePayload) {
	fmt.Printf("  rigid bodies: %s\n", describe(frame.RigidBodies == nil, len(frame.RigidBodies)))
	for _, body := range frame.RigidBodies {
		fmt.Printf("    %d pos=%.4f rot=%.4f valid=%t\n", body.ID, body.Pos, body.Rot, body.TrackingValid)
	}
	fmt.Printf("  marker sets: %s\n", describe(frame.MarkerSets == nil, len(frame.MarkerSets)))
	for _, set := range frame.MarkerSets {
		fmt.Printf("    %s: %d markers\n", set.ModelName, len(set.Positions))
	}
	fmt.Printf("  unlabeled markers: %s\n", describe(frame.UnlabeledMarkers == nil, len(frame.UnlabeledMarkers)))
	fmt.Printf("  labeled markers: %s\n", describe(frame.LabeledMarkers == nil, len(frame.LabeledMarkers)))
	for _, marker := range frame.LabeledMarkers {
		model, id := types.UnpackMarkerID(marker.ID)
		fmt.Printf("    model %d marker %d pos=%.4f\n", model, id, marker.Pos)
	}
}

func describe(absent bool, n int) string {
	if absent {
		return "absent"
	}
	return fmt.Sprintf("%d", n)
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".cbor" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mocap-track-go/internal/config"
	"mocap-track-go/internal/tracker"
)

type consoleStyles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Dim   lipgloss.Style
	Box   lipgloss.Style
}

func newConsoleStyles() consoleStyles {
	accent := lipgloss.Color("#00ff9f")
	return consoleStyles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Label: lipgloss.NewStyle().Bold(true),
		Dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		Box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
	}
}

// consoleLoop prints what the tracker sees every cfg.ConsoleInterval: each
// rigid body, the marker counts and the tracked body's pose relative to the
// reference body.
func consoleLoop(ctx context.Context, trk *tracker.Tracker, cfg config.AppConfig) {
	styles := newConsoleStyles()
	ticker := time.NewTicker(cfg.ConsoleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := renderSnapshot(trk, cfg, styles)
			if err != nil {
				log.Printf("console: %v", err)
				continue
			}
			fmt.Println(out)
		}
	}
}

func renderSnapshot(trk *tracker.Tracker, cfg config.AppConfig, styles consoleStyles) (string, error) {
	bodies, err := trk.ListAvailableRigidBodies(cfg.Timeout)
	if err != nil {
		return "", err
	}

	var lines []string
	status := trk.Status()
	lines = append(lines, styles.Title.Render("mocap-poll")+" "+
		styles.Dim.Render(fmt.Sprintf("[%s, frame %d]", status.State, status.Cache.LastFrame)))

	for _, body := range bodies {
		valid := "valid"
		if !body.TrackingValid {
			valid = "lost"
		}
		lines = append(lines, fmt.Sprintf("%s pos=%.4f rot=%.4f err=%.5f %s",
			styles.Label.Render(fmt.Sprintf("body %d", body.ID)),
			body.Position, body.Orientation, body.MarkerError, styles.Dim.Render(valid)))
	}

	sets, _ := trk.MarkerSets(0)
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s %d markers", styles.Label.Render("set "+name), len(sets[name])))
	}
	unlabeled, _ := trk.UnlabeledMarkers(0)
	labeled, _ := trk.LabeledMarkers(0)
	lines = append(lines, fmt.Sprintf("%s labeled=%d unlabeled=%d", styles.Label.Render("markers"), len(labeled), len(unlabeled)))

	ref, track := cfg.ReferenceID, cfg.TrackingID
	if world, ok := trk.RelativePosition(ref, track, cfg.Timeout); ok {
		lines = append(lines, fmt.Sprintf("%s %.4f", styles.Label.Render(fmt.Sprintf("%d->%d world", ref, track)), world))
	}
	if local, ok := trk.RelativePositionLocal(ref, track, cfg.Timeout); ok {
		lines = append(lines, fmt.Sprintf("%s %.4f", styles.Label.Render(fmt.Sprintf("%d->%d local", ref, track)), local))
	}
	if r, err := trk.RotationMatrix(ref, cfg.Timeout); err == nil {
		for col, axis := range []string{"x", "y", "z"} {
			lines = append(lines, fmt.Sprintf("%s [%.4f %.4f %.4f]",
				styles.Label.Render(fmt.Sprintf("body %d %s axis", ref, axis)), r.At(0, col), r.At(1, col), r.At(2, col)))
		}
	}
	return styles.Box.Render(strings.Join(lines, "\n")), nil
}

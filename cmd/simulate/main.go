package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/visioncue/visioncue/internal/detect"
	"github.com/visioncue/visioncue/internal/media"
	"github.com/visioncue/visioncue/internal/storage"
)

func main() {
	var (
		file  = flag.String("file", "", "Video file to analyze")
		seed  = flag.Int64("seed", 0, "Random seed (0 = time-based)")
		delay = flag.Duration("delay", 200*time.Millisecond, "Per-stage delay")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("Please provide a video file with -file flag")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal("Failed to open file:", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		log.Fatal("Failed to stat file:", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(*file))

	store := storage.NewMemoryStore()
	manager := media.NewManager(store, nil)

	asset, err := manager.SelectFile(filepath.Base(*file), contentType, info.Size(), f)
	if err != nil {
		log.Fatal("Failed to select file:", err)
	}

	fmt.Printf("Analyzing %s (%d bytes)\n", asset.DisplayName, asset.Size)

	sim := detect.NewSimulator(*seed)
	sim.StageDelay = *delay

	result, err := sim.Run(context.Background(), asset.ID, func(stage string, pct int) {
		fmt.Printf("  %-12s %3d%%\n", stage, pct)
	})
	if err != nil {
		log.Fatal("Detection run failed:", err)
	}

	fmt.Printf("\nDetections (%d):\n", len(result.Detections))
	for _, d := range result.Detections {
		fmt.Printf("  %-14s %5.1f%%  box x=%.2f y=%.2f w=%.2f h=%.2f\n",
			d.Label, d.Confidence*100, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
	}

	fmt.Printf("\nOverall confidence: %.2f\n", result.OverallConfidence)
	fmt.Printf("Summary: %s\n", result.Summary)
}

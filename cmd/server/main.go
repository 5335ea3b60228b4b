package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/visioncue/visioncue/internal/api"
	"github.com/visioncue/visioncue/internal/detect"
	"github.com/visioncue/visioncue/internal/media"
	"github.com/visioncue/visioncue/internal/overlay"
	"github.com/visioncue/visioncue/internal/pipeline"
	"github.com/visioncue/visioncue/internal/speech"
	"github.com/visioncue/visioncue/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	port := getEnv("PORT", "8080")

	maxSize, err := strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE", "104857600"), 10, 64)
	if err != nil {
		log.Fatal("Invalid MAX_UPLOAD_SIZE:", err)
	}

	stageDelayMS, err := strconv.Atoi(getEnv("STAGE_DELAY_MS", "400"))
	if err != nil {
		log.Fatal("Invalid STAGE_DELAY_MS:", err)
	}

	seed, err := strconv.ParseInt(getEnv("DETECT_SEED", "0"), 10, 64)
	if err != nil {
		log.Fatal("Invalid DETECT_SEED:", err)
	}

	voiceWaitMS, err := strconv.Atoi(getEnv("VOICE_WAIT_MS", "2000"))
	if err != nil {
		log.Fatal("Invalid VOICE_WAIT_MS:", err)
	}

	// a camera is attached only when configured; otherwise capture
	// requests behave as permission-denied
	var device media.CaptureDevice
	if cam := os.Getenv("CAMERA_DEVICE"); cam != "" {
		deviceID, err := strconv.Atoi(cam)
		if err != nil {
			log.Fatal("Invalid CAMERA_DEVICE:", err)
		}
		device = media.NewWebcam(deviceID)
		log.Printf("Camera device %d configured", deviceID)
	} else {
		log.Printf("No camera configured; live capture disabled")
	}

	store := storage.NewMemoryStore()
	manager := media.NewManager(store, device)

	sim := detect.NewSimulator(seed)
	sim.StageDelay = time.Duration(stageDelayMS) * time.Millisecond

	synth := speech.NewSimSynthesizer(speech.DefaultVoices(), 200*time.Millisecond)
	engine := speech.NewEngine(synth)
	engine.VoiceWaitTimeout = time.Duration(voiceWaitMS) * time.Millisecond

	controller := pipeline.NewController(manager, sim, engine)
	defer controller.Shutdown()

	app := &api.App{
		Pipeline:      controller,
		Renderer:      overlay.NewRenderer(1280, 720),
		MaxUploadSize: maxSize,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Max upload size: %d bytes", maxSize)
	log.Printf("Stage delay: %dms, seed: %d", stageDelayMS, seed)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

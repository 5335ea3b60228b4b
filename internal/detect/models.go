package detect

import "time"

// Category is the fixed enumeration of object classes the detector
// reports, chosen for assistive street navigation.
type Category string

const (
	Person       Category = "person"
	Car          Category = "car"
	Bicycle      Category = "bicycle"
	Bus          Category = "bus"
	Dog          Category = "dog"
	TrafficLight Category = "traffic light"
	Crosswalk    Category = "crosswalk"
	StopSign     Category = "stop sign"
	Bench        Category = "bench"
	Tree         Category = "tree"
)

var Categories = []Category{
	Person, Car, Bicycle, Bus, Dog,
	TrafficLight, Crosswalk, StopSign, Bench, Tree,
}

// Bounds is a frame-relative bounding box: all fields are fractions of
// the frame dimensions, with X+Width <= 1 and Y+Height <= 1.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Detection struct {
	ID         string   `json:"id"`
	Label      Category `json:"label"`
	Confidence float64  `json:"confidence"`
	Box        Bounds   `json:"boundingBox"`
}

// Result is the immutable output of one detection run. A new run
// produces a new Result; nothing mutates an existing one.
type Result struct {
	AssetID           string      `json:"assetId"`
	Detections        []Detection `json:"detections"`
	Summary           string      `json:"summaryText"`
	OverallConfidence float64     `json:"overallConfidence"`
	GeneratedAt       time.Time   `json:"generatedAt"`
}

// MeanConfidence is the arithmetic mean of detection confidences, 0
// for an empty set.
func MeanConfidence(detections []Detection) float64 {
	if len(detections) == 0 {
		return 0
	}
	var sum float64
	for _, d := range detections {
		sum += d.Confidence
	}
	return sum / float64(len(detections))
}

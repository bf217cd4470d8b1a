package domain

import "time"

// ModelInfo captures metadata about a fitted model artifact.
type ModelInfo struct {
	ID            string
	CreatedAt     time.Time
	InputFeatures int
	TrainSamples  int
	TestSamples   int
	Epochs        int
	BatchSize     int
	Loss          float64
	MAE           float64
}

// TrainingSummary is returned to the caller after a full
// load→sanitize→split→train→evaluate cycle.
type TrainingSummary struct {
	Info       ModelInfo
	Rows       int
	Columns    int
	ElapsedSec float64
	Report     CleanReport
}

// EvalSummary reports metrics of a model against a fresh dataset.
type EvalSummary struct {
	Loss        float64
	MAE         float64
	TestSamples int
}

// TrainingRun is the persisted record of one training, kept for history.
type TrainingRun struct {
	ModelID       string
	CreatedAt     time.Time
	InputFeatures int
	TrainSamples  int
	TestSamples   int
	Epochs        int
	BatchSize     int
	Loss          float64
	MAE           float64
	ElapsedSec    float64
	Rows          int
	Columns       int
}

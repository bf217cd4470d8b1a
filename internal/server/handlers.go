package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/usecase"
)

const (
	defaultEpochs    = 50
	defaultBatchSize = 32
	defaultTestSplit = 0.2
	maxUploadBytes   = 32 << 20
)

type trainingResponse struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	ModelID      string  `json:"model_id"`
	TrainingTime float64 `json:"training_time"`
	DataShape    [2]int  `json:"data_shape"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
	Loss         float64 `json:"loss"`
	MAE          float64 `json:"mae"`
}

type predictionRequest struct {
	Features []float64 `json:"features"`
}

type predictionResponse struct {
	Status     string  `json:"status"`
	Prediction float64 `json:"prediction"`
	ModelID    string  `json:"model_id"`
	Timestamp  string  `json:"timestamp"`
}

type evaluationResponse struct {
	Status      string  `json:"status"`
	ModelID     string  `json:"model_id"`
	Loss        float64 `json:"loss"`
	MAE         float64 `json:"mae"`
	TestSamples int     `json:"test_samples"`
	Timestamp   string  `json:"timestamp"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelID     string `json:"model_id,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Stock Prediction API",
		"endpoints": map[string]string{
			"train":    "/train",
			"predict":  "/predict",
			"evaluate": "/evaluate",
			"health":   "/health",
			"runs":     "/runs",
		},
		"model_loaded": s.currentHandle() != nil,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if h := s.currentHandle(); h != nil {
		resp.ModelLoaded = true
		resp.ModelID = h.Info.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	h := s.currentHandle()
	if h == nil {
		writeError(w, http.StatusNotFound, "No model loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"model_metadata": map[string]any{
			"model_id":         h.Info.ID,
			"created_at":       h.Info.CreatedAt.Format(time.RFC3339),
			"input_features":   h.Info.InputFeatures,
			"training_samples": h.Info.TrainSamples,
			"test_samples":     h.Info.TestSamples,
			"epochs":           h.Info.Epochs,
			"batch_size":       h.Info.BatchSize,
			"loss":             h.Info.Loss,
			"mae":              h.Info.MAE,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := s.workbench.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logError("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read training history")
		return
	}

	items := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		items = append(items, map[string]any{
			"model_id":      run.ModelID,
			"created_at":    run.CreatedAt.Format(time.RFC3339),
			"loss":          run.Loss,
			"mae":           run.MAE,
			"train_samples": run.TrainSamples,
			"test_samples":  run.TestSamples,
			"epochs":        run.Epochs,
			"batch_size":    run.BatchSize,
			"elapsed_sec":   run.ElapsedSec,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "runs": items})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	epochs, err := intQuery(r, "epochs", defaultEpochs, 1, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	batchSize, err := intQuery(r, "batch_size", defaultBatchSize, 1, 512)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	testSplit, err := floatQuery(r, "test_split", defaultTestSplit, 0.1, 0.5)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, ok := s.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	handle, summary, err := s.workbench.Train(r.Context(), file, usecase.TrainOptions{
		Epochs:    epochs,
		BatchSize: batchSize,
		TestSplit: testSplit,
	})
	if err != nil {
		s.respondPipelineError(w, "training", err)
		return
	}

	s.setCurrent(handle)
	s.info("model trained", "model_id", summary.Info.ID, "loss", summary.Info.Loss, "mae", summary.Info.MAE)

	writeJSON(w, http.StatusOK, trainingResponse{
		Status:       "success",
		Message:      "Model trained successfully",
		ModelID:      summary.Info.ID,
		TrainingTime: summary.ElapsedSec,
		DataShape:    [2]int{summary.Rows, summary.Columns},
		TrainSamples: summary.Info.TrainSamples,
		TestSamples:  summary.Info.TestSamples,
		Loss:         summary.Info.Loss,
		MAE:          summary.Info.MAE,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a features array")
		return
	}

	h := s.currentHandle()
	if h == nil {
		writeError(w, http.StatusBadRequest, "No model available. Please train a model first.")
		return
	}

	prediction, err := s.workbench.Predict(r.Context(), h, req.Features)
	if err != nil {
		s.respondPipelineError(w, "prediction", err)
		return
	}

	writeJSON(w, http.StatusOK, predictionResponse{
		Status:     "success",
		Prediction: prediction,
		ModelID:    h.Info.ID,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	h := s.currentHandle()
	if h == nil {
		writeError(w, http.StatusBadRequest, "No model available. Please train a model first.")
		return
	}

	file, ok := s.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	summary, err := s.workbench.EvaluateCSV(r.Context(), h, file)
	if err != nil {
		s.respondPipelineError(w, "evaluation", err)
		return
	}

	writeJSON(w, http.StatusOK, evaluationResponse{
		Status:      "success",
		ModelID:     h.Info.ID,
		Loss:        summary.Loss,
		MAE:         summary.MAE,
		TestSamples: summary.TestSamples,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

// openUpload extracts the CSV part of a multipart request, writing the
// error response itself when the upload is unusable.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request) (multipartFile, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart upload with a file field")
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field in upload")
		return nil, false
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		_ = file.Close()
		writeError(w, http.StatusBadRequest, "File must be a CSV file")
		return nil, false
	}
	return file, true
}

type multipartFile interface {
	Read(p []byte) (int, error)
	Close() error
}

// respondPipelineError maps the closed error taxonomy to HTTP statuses:
// everything the user can fix is 400, the rest is 500.
func (s *Server) respondPipelineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyAfterLoad),
		errors.Is(err, domain.ErrEmptyAfterCleaning),
		errors.Is(err, domain.ErrSchema),
		errors.Is(err, domain.ErrNumericValidity),
		errors.Is(err, domain.ErrSizing),
		errors.Is(err, domain.ErrNoModel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logError(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed: %v", op, err))
	}
}

func intQuery(r *http.Request, name string, dflt, min, max int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return dflt, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, min, max)
	}
	return parsed, nil
}

func floatQuery(r *http.Request, name string, dflt, min, max float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return dflt, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be a number between %g and %g", name, min, max)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

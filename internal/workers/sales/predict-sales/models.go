// internal/workers/sales/predict-sales/models.go
package predictsales

import "sales-predictor/internal/models"

// Input is the job's variables. Keys are the training column names.
type Input = models.PredictionRequest

type Output struct {
	PredictedSales float64 `json:"predictedSales"`
	Display        string  `json:"display"`
	ModelVersion   string  `json:"modelVersion"`
	Cached         bool    `json:"cached"`
}

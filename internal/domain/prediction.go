package domain

// MLPrediction is the fraud probability returned by the ML predictor port.
type MLPrediction struct {
	ModelID           string             `json:"model_id"`
	ModelVersion      string             `json:"model_version,omitempty"`
	FraudProbability  float64            `json:"fraud_probability"` // [0,1]
	Confidence        float64            `json:"confidence"`        // [0,1]
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

// ModelUnavailable is the model id of the fallback prediction.
const ModelUnavailable = "unavailable"

// UnavailablePrediction is the sentinel standing in for a failed
// prediction: scoring degrades to rule-only rather than blocking the
// pipeline.
func UnavailablePrediction() MLPrediction {
	return MLPrediction{
		ModelID:          ModelUnavailable,
		FraudProbability: 0,
		Confidence:       0,
	}
}

// IsUnavailable returns true for the fallback sentinel.
func (p MLPrediction) IsUnavailable() bool {
	return p.ModelID == ModelUnavailable
}

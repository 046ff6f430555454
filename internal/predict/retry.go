package predict

// RetryPolicy bounds regeneration attempts for low-signal model output.
// Each attempt raises the sampling temperature to push the model away from
// the uniform answers that triggered the retry.
type RetryPolicy struct {
	MaxAttempts     int
	BaseTemperature float32
	TemperatureStep float32
}

// DefaultRetryPolicy mirrors the generation defaults: three attempts,
// starting at 0.5 and warming by 0.2 per retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseTemperature: 0.5, TemperatureStep: 0.2}
}

// Temperature returns the sampling temperature for a 1-based attempt.
func (p RetryPolicy) Temperature(attempt int) float32 {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseTemperature + float32(attempt-1)*p.TemperatureStep
}

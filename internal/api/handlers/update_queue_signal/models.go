package update_queue_signal

// UpdateSignalRequest HTTP request model
type UpdateSignalRequest struct {
	Reason                *string `json:"reason,omitempty"`
	DelayThresholdMinutes *int    `json:"delayThresholdMinutes,omitempty"`
}

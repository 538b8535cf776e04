package complete_appointment

// CompleteAppointmentRequest HTTP request model
type CompleteAppointmentRequest struct {
	ServiceMinutes *int `json:"serviceMinutes,omitempty"` // если не указано, вычисляется
}

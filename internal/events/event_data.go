package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RecordsChangedData describes a mutation in the record store
type RecordsChangedData struct {
	Kind     string `json:"kind"`
	Action   string `json:"action"`
	RecordID string `json:"record_id,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// EventType returns the event type for RecordsChangedData
func (d *RecordsChangedData) EventType() EventType {
	return RecordsChanged
}

// InsightsRefreshedData contains data for InsightsRefreshed events
type InsightsRefreshedData struct {
	Reason              string `json:"reason"`
	OpportunityInsights int    `json:"opportunity_insights"`
	TaskInsights        int    `json:"task_insights"`
}

// EventType returns the event type for InsightsRefreshedData
func (d *InsightsRefreshedData) EventType() EventType {
	return InsightsRefreshed
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
	Rotated   int    `json:"rotated"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// JobStatusData contains data for scheduler job events
type JobStatusData struct {
	Job        string `json:"job"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// EventType returns the event type for JobStatusData
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "failed":
		return JobFailed
	default:
		return JobCompleted
	}
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

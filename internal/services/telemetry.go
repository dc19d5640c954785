package services

import (
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/models"
)

// Telemetry collects the timed steps and log lines shown to the user after
// an upload, whether it succeeded or not.
type Telemetry struct {
	Steps []models.AgentStep
	Logs  []string

	stageStart time.Time
	now        func() time.Time
}

func NewTelemetry() *Telemetry {
	t := &Telemetry{now: time.Now}
	t.stageStart = t.now()
	return t
}

func (t *Telemetry) Log(line string) {
	t.Logs = append(t.Logs, line)
}

// Step closes the current stage under label and starts the next one.
func (t *Telemetry) Step(label string) {
	end := t.now()
	t.Steps = append(t.Steps, models.AgentStep{
		Label:      label,
		DurationMs: end.Sub(t.stageStart).Milliseconds(),
	})
	t.stageStart = end
}

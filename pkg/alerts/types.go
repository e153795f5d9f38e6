package alerts

import (
	"context"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert model.Alert) error
}

// severityColor maps an alert severity to an attachment color.
func severityColor(s model.Severity) string {
	switch s {
	case model.SeverityWarning:
		return "#ff9900" // orange
	case model.SeverityCritical:
		return "#ff0000" // red
	default:
		return "#36a64f" // green
	}
}

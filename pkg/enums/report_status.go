package enums

import "fmt"

// ReportStatus models the repair report workflow.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusExported   ReportStatus = "exported"
)

var validReportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusInProgress,
	ReportStatusCompleted,
	ReportStatusExported,
}

// String implements fmt.Stringer.
func (s ReportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known report status.
func (s ReportStatus) IsValid() bool {
	for _, candidate := range validReportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReportStatus converts raw input into a ReportStatus.
func ParseReportStatus(value string) (ReportStatus, error) {
	for _, candidate := range validReportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report status %q", value)
}

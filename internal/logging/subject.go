package logging

import "strings"

// FormatSubject builds the component/job subject string used in console output.
// Job IDs are shortened to their first eight characters.
func FormatSubject(component, jobID string) string {
	component = strings.TrimSpace(component)
	jobID = strings.TrimSpace(jobID)
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	switch {
	case component != "" && jobID != "":
		return component + " · job " + jobID
	case jobID != "":
		return "job " + jobID
	default:
		return component
	}
}

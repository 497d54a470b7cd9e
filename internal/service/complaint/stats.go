// internal/service/complaint/stats.go

package complaint

import "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"

// Summarize counts complaints by status, priority and issue type in one
// pass. Every known key is present in the result, zero when absent.
func Summarize(complaints []complaint.Complaint) complaint.Summary {
	summary := complaint.Summary{
		ByStatus:    make(map[complaint.Status]int, len(complaint.Statuses)),
		ByPriority:  make(map[complaint.Priority]int, len(complaint.Priorities)),
		ByIssueType: make(map[complaint.IssueType]int, len(complaint.IssueTypes)),
	}
	for _, s := range complaint.Statuses {
		summary.ByStatus[s] = 0
	}
	for _, p := range complaint.Priorities {
		summary.ByPriority[p] = 0
	}
	for _, it := range complaint.IssueTypes {
		summary.ByIssueType[it] = 0
	}

	for _, c := range complaints {
		summary.Total++
		summary.ByStatus[c.Status]++
		summary.ByPriority[c.Priority]++
		summary.ByIssueType[c.IssueType]++
	}
	summary.Urgent = summary.ByPriority[complaint.PriorityUrgent]

	return summary
}

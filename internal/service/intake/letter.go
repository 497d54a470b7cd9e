package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

const defaultDescription = "Civic infrastructure issue requiring resolution"

// FormalLetter renders the template letter used when no drafting model is
// available.
func FormalLetter(c complaint.Complaint, date time.Time) string {
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = defaultDescription
	}
	issue := strings.ReplaceAll(string(c.IssueType), "_", " ")

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s Issue - Immediate Attention Required\n\n", c.IssueType.Label())
	fmt.Fprintf(&b, "Dear %s,\n\n", addressee(c.Department))
	fmt.Fprintf(&b, "I am writing to report a %s issue that requires immediate attention.\n\n", issue)
	fmt.Fprintf(&b, "LOCATION: %s\n", c.Location.Address)
	fmt.Fprintf(&b, "DESCRIPTION: %s\n\n", description)
	b.WriteString("This matter has been reported through the Naagrik Nivedan platform and requires prompt ")
	b.WriteString("investigation and resolution to ensure public safety and maintain service standards.\n\n")
	b.WriteString("Please provide updates on the progress through our tracking system.\n\n")
	b.WriteString("Respectfully,\nNaagrik Nivedan Platform\n")
	b.WriteString(date.Format("January 2, 2006"))

	return b.String()
}

// addressee avoids "Water Department Department"
func addressee(department string) string {
	if strings.HasSuffix(strings.ToLower(department), "department") {
		return department
	}
	return department + " Department"
}

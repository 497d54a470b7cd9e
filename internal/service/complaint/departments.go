// internal/service/complaint/departments.go

package complaint

import "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"

// Department names
const (
	DepartmentPublicWorks = "Public Works"
	DepartmentWater       = "Water Department"
	DepartmentTraffic     = "Traffic Department"
	DepartmentSanitation  = "Sanitation"
)

var departmentByIssue = map[complaint.IssueType]string{
	complaint.IssueTypePothole:        DepartmentPublicWorks,
	complaint.IssueTypeStreetLight:    DepartmentPublicWorks,
	complaint.IssueTypeSidewalkDamage: DepartmentPublicWorks,
	complaint.IssueTypeWaterLeak:      DepartmentWater,
	complaint.IssueTypeDrainage:       DepartmentWater,
	complaint.IssueTypeTrafficSignal:  DepartmentTraffic,
	complaint.IssueTypeGarbage:        DepartmentSanitation,
	complaint.IssueTypeOther:          DepartmentPublicWorks,
}

// DepartmentFor returns the department that owns an issue type
func DepartmentFor(issueType complaint.IssueType) string {
	if dept, ok := departmentByIssue[issueType]; ok {
		return dept
	}
	return DepartmentPublicWorks
}

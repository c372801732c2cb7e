// Package field is the closed registry of semantic SCA field names and
// their canonical JSON-pointer paths.
package field

import "fmt"

// Name identifies a semantic field understood by the SCA decoder. The
// enumeration is closed: every Name has a defined relative path, and
// iteration via All is total and stable.
type Name int

const (
	ID Name = iota
	ScanID
	Description
	References
	StartTime
	EndTime
	Passed
	Failed
	Invalid
	TotalChecks
	Score
	Hash
	HashFile
	File
	PolicyName
	FirstScan
	ForceAlert
	Policy
	PolicyID
	Policies
	Check
	CheckID
	CheckTitle
	CheckDescription
	CheckRationale
	CheckRemediation
	CheckReferences
	CheckCompliance
	CheckCondition
	CheckDirectory
	CheckProcess
	CheckRegistry
	CheckCommand
	CheckRules
	CheckStatus
	CheckReason
	CheckResult
	CheckFile
	ElementsSent
	Type
	CheckPreviousResult
	Root

	numNames
)

// FieldType is the JSON type a field's value is expected to carry.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeBool
	TypeArray
	TypeObject
)

// Condition pairs a field with the type it must carry and whether its
// presence is mandatory for the enclosing schema check to pass.
type Condition struct {
	Field     Name
	Type      FieldType
	Mandatory bool
}

var relativePaths = map[Name]string{
	ID:                   "/id",
	ScanID:               "/scan_id",
	Description:          "/description",
	References:           "/references",
	StartTime:            "/start_time",
	EndTime:              "/end_time",
	Passed:               "/passed",
	Failed:               "/failed",
	Invalid:              "/invalid",
	TotalChecks:          "/total_checks",
	Score:                "/score",
	Hash:                 "/hash",
	HashFile:             "/hash_file",
	File:                 "/file",
	PolicyName:           "/name",
	FirstScan:            "/first_scan",
	ForceAlert:           "/force_alert",
	Policy:               "/policy",
	PolicyID:             "/policy_id",
	Policies:             "/policies",
	Check:                "/check",
	CheckID:              "/check/id",
	CheckTitle:           "/check/title",
	CheckDescription:     "/check/description",
	CheckRationale:       "/check/rationale",
	CheckRemediation:     "/check/remediation",
	CheckReferences:      "/check/references",
	CheckCompliance:      "/check/compliance",
	CheckCondition:       "/check/condition",
	CheckDirectory:       "/check/directory",
	CheckProcess:         "/check/process",
	CheckRegistry:        "/check/registry",
	CheckCommand:         "/check/command",
	CheckRules:           "/check/rules",
	CheckStatus:          "/check/status",
	CheckReason:          "/check/reason",
	CheckResult:          "/check/result",
	CheckFile:            "/check/file",
	ElementsSent:         "/elements_sent",
	Type:                 "/type",
	CheckPreviousResult:  "/check/previous_result",
	Root:                 "",
}

// RelativePath returns the canonical path for f relative to a schema root.
// It panics if f is outside the closed set, mirroring the original
// decoder's logic_error on an unknown field -- a programmer error, not a
// runtime condition callers are expected to recover from.
func RelativePath(f Name) string {
	p, ok := relativePaths[f]
	if !ok {
		panic(fmt.Sprintf("field: unknown field %d", f))
	}
	return p
}

// All returns every Name in stable enumeration order.
func All() []Name {
	names := make([]Name, 0, numNames)
	for n := Name(0); n < numNames; n++ {
		names = append(names, n)
	}
	return names
}

// String renders a human-readable name, used in log fields and traces.
func (n Name) String() string {
	switch n {
	case ID:
		return "id"
	case ScanID:
		return "scan_id"
	case Description:
		return "description"
	case References:
		return "references"
	case StartTime:
		return "start_time"
	case EndTime:
		return "end_time"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Invalid:
		return "invalid"
	case TotalChecks:
		return "total_checks"
	case Score:
		return "score"
	case Hash:
		return "hash"
	case HashFile:
		return "hash_file"
	case File:
		return "file"
	case PolicyName:
		return "name"
	case FirstScan:
		return "first_scan"
	case ForceAlert:
		return "force_alert"
	case Policy:
		return "policy"
	case PolicyID:
		return "policy_id"
	case Policies:
		return "policies"
	case Check:
		return "check"
	case CheckID:
		return "check_id"
	case CheckTitle:
		return "check_title"
	case CheckDescription:
		return "check_description"
	case CheckRationale:
		return "check_rationale"
	case CheckRemediation:
		return "check_remediation"
	case CheckReferences:
		return "check_references"
	case CheckCompliance:
		return "check_compliance"
	case CheckCondition:
		return "check_condition"
	case CheckDirectory:
		return "check_directory"
	case CheckProcess:
		return "check_process"
	case CheckRegistry:
		return "check_registry"
	case CheckCommand:
		return "check_command"
	case CheckRules:
		return "check_rules"
	case CheckStatus:
		return "check_status"
	case CheckReason:
		return "check_reason"
	case CheckResult:
		return "check_result"
	case CheckFile:
		return "check_file"
	case ElementsSent:
		return "elements_sent"
	case Type:
		return "type"
	case CheckPreviousResult:
		return "check_previous_result"
	case Root:
		return "root"
	default:
		return "unknown"
	}
}

// CSVFields are the optional check fields whose source value is a
// comma-separated string, expanded into a JSON array at the destination.
var CSVFields = []Name{CheckFile, CheckDirectory, CheckRegistry, CheckProcess, CheckCommand}

// RuleTypeForTag maps the leading character of a CHECK_RULES entry to its
// rule-type string, mirroring the original decoder's getRuleTypeStr.
func RuleTypeForTag(tag byte) (string, bool) {
	switch tag {
	case 'f':
		return "file", true
	case 'd':
		return "directory", true
	case 'r':
		return "registry", true
	case 'c':
		return "command", true
	case 'p':
		return "process", true
	case 'n':
		return "numeric", true
	default:
		return "", false
	}
}

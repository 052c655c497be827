// -----------------------------------------------------------------------
// Package rules defines the controlled vocabularies and business rules
// used to validate extracted document metadata
// -----------------------------------------------------------------------

package rules

import "strings"

// DocumentTypes is the allowed set of document_type values.
var DocumentTypes = []string{
	"HR Policy",
	"Technical Manual",
	"Financial Report",
	"Legal Document",
	"Memo",
	"Procedure",
	"Guideline",
	"Standard Operating Procedure",
	"Other",
}

// Departments is the allowed set of department values.
var Departments = []string{
	"HR",
	"Engineering",
	"Finance",
	"Legal",
	"Operations",
	"Marketing",
	"Sales",
	"Executive",
	"IT",
	"Cross-Functional",
}

// AuthorityLevels is the allowed set of authority_level values.
var AuthorityLevels = []string{
	"official",   // current, approved, authoritative
	"draft",      // under review, not yet approved
	"archived",   // historical, superseded by newer version
	"deprecated", // no longer in use, kept for reference
	"reference",  // informational, not authoritative
}

// IntendedAudiences is the allowed set of intended_audience values.
var IntendedAudiences = []string{
	"all_employees",
	"managers",
	"executives",
	"engineers",
	"hr_staff",
	"finance_team",
	"legal_team",
	"contractors",
	"new_hires",
	"specific_department",
}

// GeographicScopes is the allowed set of geographic_scope values.
var GeographicScopes = []string{
	"global",
	"us",
	"eu",
	"apac",
	"emea",
	"country_specific",
}

// ComplexityLevels is the allowed set of classification complexity values.
var ComplexityLevels = []string{
	"simple",
	"structured",
	"complex",
}

// SectionTypes is the allowed set of chunk-level section_type values.
var SectionTypes = []string{
	"overview",
	"procedure",
	"example",
	"definition",
	"requirement",
	"recommendation",
	"reference",
	"warning",
	"best_practice",
}

// TopicTaxonomy groups the topic vocabulary by business category.
var TopicTaxonomy = map[string][]string{
	"hr": {
		"annual_leave",
		"sick_leave",
		"parental_leave",
		"bereavement_leave",
		"unpaid_leave",
		"remote_work",
		"hybrid_work",
		"performance_review",
		"compensation",
		"benefits",
		"equity",
		"stock_options",
		"vesting",
		"employee_conduct",
		"code_of_conduct",
		"harassment_policy",
		"diversity_inclusion",
		"onboarding",
		"offboarding",
		"termination",
	},
	"engineering": {
		"api_documentation",
		"system_architecture",
		"deployment",
		"ci_cd",
		"kubernetes",
		"docker",
		"cloud_infrastructure",
		"aws",
		"azure",
		"gcp",
		"database",
		"security",
		"authentication",
		"authorization",
		"testing",
		"code_review",
		"git_workflow",
		"monitoring",
		"logging",
		"incident_response",
	},
	"finance": {
		"budget",
		"expenses",
		"revenue",
		"forecasting",
		"quarterly_report",
		"annual_report",
		"financial_planning",
		"cost_center",
		"procurement",
		"vendor_management",
		"invoicing",
		"reimbursement",
		"travel_expenses",
	},
	"legal": {
		"contract",
		"agreement",
		"terms_of_service",
		"privacy_policy",
		"data_protection",
		"gdpr",
		"ccpa",
		"intellectual_property",
		"trademark",
		"copyright",
		"patent",
		"liability",
		"indemnification",
		"compliance",
		"regulatory",
	},
	"operations": {
		"standard_operating_procedure",
		"sop",
		"process_documentation",
		"quality_assurance",
		"supply_chain",
		"inventory",
		"logistics",
		"facilities",
		"safety",
		"emergency_procedures",
	},
}

// AllTopics is the flattened topic vocabulary across all categories.
var AllTopics = flattenTopics()

func flattenTopics() []string {
	// Stable order: category iteration order is not deterministic, so
	// flatten in a fixed category order.
	categories := []string{"hr", "engineering", "finance", "legal", "operations"}
	var all []string
	for _, category := range categories {
		all = append(all, TopicTaxonomy[category]...)
	}
	return all
}

// IsValidDocumentType checks if a document type is in the allowed list.
func IsValidDocumentType(docType string) bool {
	return contains(DocumentTypes, docType)
}

// IsValidDepartment checks if a department is in the allowed list.
func IsValidDepartment(department string) bool {
	return contains(Departments, department)
}

// IsValidAuthorityLevel checks if an authority level is in the allowed list.
func IsValidAuthorityLevel(level string) bool {
	return contains(AuthorityLevels, level)
}

// IsValidAudience checks if an audience is in the allowed list.
func IsValidAudience(audience string) bool {
	return contains(IntendedAudiences, audience)
}

// IsValidGeographicScope checks if a geographic scope is in the allowed list.
func IsValidGeographicScope(scope string) bool {
	return contains(GeographicScopes, scope)
}

// IsValidComplexity checks if a complexity level is in the allowed list.
func IsValidComplexity(level string) bool {
	return contains(ComplexityLevels, level)
}

// IsValidSectionType checks if a section type is in the allowed list.
func IsValidSectionType(sectionType string) bool {
	return contains(SectionTypes, sectionType)
}

// IsValidTopic checks if a topic is in the vocabulary, case-insensitively.
func IsValidTopic(topic string) bool {
	lower := strings.ToLower(topic)
	for _, t := range AllTopics {
		if strings.ToLower(t) == lower {
			return true
		}
	}
	return false
}

// TopicCategory returns the taxonomy category for a topic, or "" when the
// topic is not in the vocabulary.
func TopicCategory(topic string) string {
	lower := strings.ToLower(topic)
	for category, topics := range TopicTaxonomy {
		for _, t := range topics {
			if strings.ToLower(t) == lower {
				return category
			}
		}
	}
	return ""
}

// RelatedTopics returns up to maxResults topics from the same taxonomy
// category, excluding the input topic itself.
func RelatedTopics(topic string, maxResults int) []string {
	category := TopicCategory(topic)
	if category == "" {
		return nil
	}

	lower := strings.ToLower(topic)
	var related []string
	for _, t := range TopicTaxonomy[category] {
		if strings.ToLower(t) == lower {
			continue
		}
		related = append(related, t)
		if len(related) >= maxResults {
			break
		}
	}
	return related
}

// SuggestTopics returns up to maxSuggestions vocabulary topics containing
// the partial string, case-insensitively.
func SuggestTopics(partial string, maxSuggestions int) []string {
	lower := strings.ToLower(partial)
	var matches []string
	for _, topic := range AllTopics {
		if strings.Contains(strings.ToLower(topic), lower) {
			matches = append(matches, topic)
			if len(matches) >= maxSuggestions {
				break
			}
		}
	}
	return matches
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

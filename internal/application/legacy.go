package application

import (
	"strings"

	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
)

// legacyNames maps field names used by older intake clients onto the
// current names.
var legacyNames = map[string]string{
	"firm_located_detroit":                        IsDetroitLocated,
	"legal_status_us":                             IsUSCitizenOrLegal,
	"adult_entertainment_firearm_payday":          IsRestrictedBusiness,
	"elected_official_or_candidate":               IsElectedOfficial,
	"bipoc_led":                                   BIPOCMajorityOwned,
	"previous_invest_detroit_client_or_applicant": PreviousInvestDetroitClient,
	"owner_criminal_offense":                      CriminalOffense,
	"outstanding_judgments_or_liens":              OutstandingJudgments,
	"owners_bankruptcy_last_7_years":              BankruptcyLast7Years,
	"gender_self_describe":                        GenderOther,
	"veteran":                                     IsVeteran,
	"immigrant_to_us":                             IsImmigrant,
	"returning_citizen":                           IsReturningCitizen,
	"years_dev_experience":                        YearsDeveloperExperience,
	"projects_completed_or_in_progress":           ProjectsCompleted,
	"has_project_next_12_months":                  ProjectStartingSoon,
	"ack_truthful":                                AcknowledgementTruthful,
	"ack_not_guaranteed":                          AcknowledgementNotGuaranteed,
	"ack_authorize_credit":                        AcknowledgementAuthorize,
	"firm_overview_growth_strategy":               FirmOverview,
	"one_pager_projects":                          OnePager,
	"team_bios_resumes":                           TeamBios,
	"upcoming_project_budget_sources_uses":        ProjectBudget,
	"upcoming_project_development_timeline":       ProjectTimeline,
}

// Canonicalize returns a copy of values with legacy field names renamed and
// select answers folded to their option values ("Yes" becomes "yes",
// "Prefer not to say" becomes "prefer_not_to_say"). A canonical key wins
// over its legacy alias.
func Canonicalize(values forms.Values) forms.Values {
	out := make(forms.Values, len(values))
	for k, v := range values {
		if _, legacy := legacyNames[k]; !legacy {
			out[k] = v
		}
	}
	for legacy, canonical := range legacyNames {
		v, ok := values[legacy]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}

	for _, f := range FullSchema().Fields {
		if f.Kind != forms.KindSelect {
			continue
		}
		if s, ok := out[f.Name].(string); ok {
			out[f.Name] = foldOption(s)
		}
	}
	return out
}

func foldOption(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

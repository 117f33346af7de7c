// Package application declares the funding application: its fields, the
// six wizard steps and the payload sent to the relay.
package application

import "github.com/gabrielmiguelok/fundingintake/pkg/forms"

// Applicant information.
const (
	FirstName          = "first_name"
	LastName           = "last_name"
	JobTitle           = "job_title"
	BusinessName       = "business_name"
	AmountRequested    = "amount_requested"
	HomeAddress        = "home_address"
	HomeCity           = "home_city"
	HomeState          = "home_state"
	HomeZipCode        = "home_zip_code"
	ContactEmail       = "contact_email"
	PhoneNumber        = "phone_number"
	HasDevelopmentFirm = "has_development_firm"
)

// Eligibility questions.
const (
	Is18OrOlder                 = "is_18_or_older"
	IsDetroitLocated            = "is_detroit_located"
	IsUSCitizenOrLegal          = "is_us_citizen_or_legal"
	BankruptcyLast24Months      = "bankruptcy_last_24_months"
	IsRestrictedBusiness        = "is_restricted_business"
	CannabisRelated             = "cannabis_related"
	IsElectedOfficial           = "is_elected_official"
	BIPOCMajorityOwned          = "bipoc_majority_owned"
	PreviousInvestDetroitClient = "previous_invest_detroit_client"
	CriminalOffense             = "criminal_offense"
	OutstandingJudgments        = "outstanding_judgments"
	BankruptcyLast7Years        = "bankruptcy_last_7_years"
)

// Impact metrics.
const (
	DetroitResident    = "detroit_resident"
	Ethnicity          = "ethnicity"
	EthnicityOther     = "ethnicity_other"
	Gender             = "gender"
	GenderOther        = "gender_other"
	IsVeteran          = "is_veteran"
	IsImmigrant        = "is_immigrant"
	IsReturningCitizen = "is_returning_citizen"
)

// Developer experience.
const (
	YearsDeveloperExperience = "years_developer_experience"
	YearsOtherExperience     = "years_other_experience"
	ProjectsCompleted        = "projects_completed"
	ProjectStartingSoon      = "project_starting_soon"
)

// Supporting documents.
const (
	FirmOverview    = "firm_overview"
	OnePager        = "one_pager"
	TeamBios        = "team_bios"
	ProjectBudget   = "project_budget"
	ProjectTimeline = "project_timeline"
)

// Acknowledgements.
const (
	AcknowledgementTruthful      = "acknowledgement_truthful"
	AcknowledgementNotGuaranteed = "acknowledgement_not_guaranteed"
	AcknowledgementAuthorize     = "acknowledgement_authorize"
)

// Sentinel answers that reveal a follow-up text field.
const (
	OtherValue          = "other"
	SelfDescribeValue   = "prefer_to_self_describe"
	PreferNotToSayValue = "prefer_not_to_say"
)

// EligibilityQuestions lists the yes/no eligibility fields in display order.
var EligibilityQuestions = []string{
	Is18OrOlder,
	IsDetroitLocated,
	IsUSCitizenOrLegal,
	BankruptcyLast24Months,
	IsRestrictedBusiness,
	CannabisRelated,
	IsElectedOfficial,
	BIPOCMajorityOwned,
	PreviousInvestDetroitClient,
	CriminalOffense,
	OutstandingJudgments,
	BankruptcyLast7Years,
}

// Documents lists the document fields in display order.
var Documents = []string{FirmOverview, OnePager, TeamBios, ProjectBudget, ProjectTimeline}

// Acknowledgements lists the acknowledgement fields in display order.
var Acknowledgements = []string{AcknowledgementTruthful, AcknowledgementNotGuaranteed, AcknowledgementAuthorize}

// YesNoOptions answers the eligibility questions.
var YesNoOptions = []forms.Option{
	{Value: "yes", Label: "Yes"},
	{Value: "no", Label: "No"},
}

// YesNoPreferOptions answers the demographic questions.
var YesNoPreferOptions = []forms.Option{
	{Value: "yes", Label: "Yes"},
	{Value: "no", Label: "No"},
	{Value: PreferNotToSayValue, Label: "Prefer not to say"},
}

// EthnicityOptions lists the ethnicity answers.
var EthnicityOptions = []forms.Option{
	{Value: "african_american", Label: "African American / Black"},
	{Value: "asian", Label: "Asian"},
	{Value: "hispanic_latino", Label: "Hispanic / Latino"},
	{Value: "native_american", Label: "Native American / Alaska Native"},
	{Value: "native_hawaiian", Label: "Native Hawaiian / Pacific Islander"},
	{Value: "white", Label: "White / Caucasian"},
	{Value: "two_or_more", Label: "Two or more races"},
	{Value: OtherValue, Label: "Other (please specify)"},
	{Value: PreferNotToSayValue, Label: "Prefer not to say"},
}

// GenderOptions lists the gender answers.
var GenderOptions = []forms.Option{
	{Value: "male", Label: "Male"},
	{Value: "female", Label: "Female"},
	{Value: "non_binary", Label: "Non-binary"},
	{Value: OtherValue, Label: "Other (please specify)"},
	{Value: SelfDescribeValue, Label: "Prefer to self-describe"},
	{Value: PreferNotToSayValue, Label: "Prefer not to say"},
}

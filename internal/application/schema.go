package application

import (
	"github.com/gabrielmiguelok/fundingintake/pkg/forms"
	"github.com/gabrielmiguelok/fundingintake/pkg/wizard"
)

// Validation messages.
const (
	MsgAcknowledgement = "You must agree to this acknowledgement"
	MsgSelectOption    = "Please select an option"
	MsgRequired        = forms.DefaultRequiredMessage
	MsgPhoneRequired   = "Phone number is required"
	MsgPhoneInvalid    = "Please enter a valid phone number"
	MsgZipInvalid      = "Zip code must be 5 digits"
	MsgEmailInvalid    = "Please enter a valid email address"
	MsgAmountRange     = "Amount must be greater than 0 and at most 10,000,000"
)

const (
	phonePattern = `^[\+]?[(]?[0-9]{1,3}[)]?[-\s\.]?[(]?[0-9]{1,3}[)]?[-\s\.]?[0-9]{4,6}$`
	zipPattern   = `^\d{5}$`

	// MaxAmountRequested bounds amount_requested from above.
	MaxAmountRequested = 10_000_000
)

// ApplicantInfoSchema validates step 1.
func ApplicantInfoSchema() *forms.Schema {
	return forms.NewSchema("applicant_info",
		forms.TextField(FirstName, "First Name", forms.WithRequired("First name is required"), forms.WithMaxLength(50)),
		forms.TextField(LastName, "Last Name", forms.WithRequired("Last name is required"), forms.WithMaxLength(50)),
		forms.TextField(BusinessName, "Business Name", forms.WithRequired("Business name is required"), forms.WithMaxLength(150)),
		forms.NumberField(AmountRequested, "Amount Requested ($)",
			forms.WithValidator(forms.PositiveUpTo(MaxAmountRequested, MsgAmountRange))),
		forms.TextField(JobTitle, "Job Title", forms.WithMaxLength(100)),
		forms.TextField(HomeAddress, "Home Address", forms.WithMaxLength(200)),
		forms.TextField(HomeCity, "City", forms.WithMaxLength(100)),
		forms.TextField(HomeState, "State", forms.WithMaxLength(2)),
		forms.TextField(HomeZipCode, "Zip Code", forms.WithValidator(forms.Pattern(zipPattern, MsgZipInvalid))),
		forms.EmailField(ContactEmail, "Contact Email Address", MsgEmailInvalid,
			forms.WithRequired(MsgEmailInvalid)),
		forms.TelField(PhoneNumber, "Phone Number",
			forms.WithRequired(MsgPhoneRequired),
			forms.WithMinLength(10, MsgPhoneRequired),
			forms.WithValidator(forms.Pattern(phonePattern, MsgPhoneInvalid))),
		forms.SelectField(HasDevelopmentFirm, "Do you have a Development Firm?", YesNoOptions,
			forms.WithRequired(MsgSelectOption)),
	)
}

var eligibilityLabels = map[string]string{
	Is18OrOlder:                 "Are you 18 years of age or older?",
	IsDetroitLocated:            "Is your business/development firm located within the city limits of the City of Detroit?",
	IsUSCitizenOrLegal:          "Are you a citizen of the US or have legal immigration status?",
	BankruptcyLast24Months:      "Have you filed for bankruptcy or had a bankruptcy discharge in the last 24 months?",
	IsRestrictedBusiness:        "Is your business an adult entertainment, firearm dealer, or associated with cash advances and/or payday loans?",
	CannabisRelated:             "Do you or any of your businesses or properties handle cannabis-related items, including CBD products?",
	IsElectedOfficial:           "Are you an elected official or have you filed to run for political office?",
	BIPOCMajorityOwned:          "Is your development firm majority owned/led by BIPOC leaders?",
	PreviousInvestDetroitClient: "Are you or a majority owner a previous client of, or previous loan applicant to, Invest Detroit?",
	CriminalOffense:             "Has any owner been charged with or convicted of any criminal offense?",
	OutstandingJudgments:        "Are there any outstanding judgments, tax liens, garnishments or other legal proceedings against the business or its owners?",
	BankruptcyLast7Years:        "Have any owners had a bankruptcy in the last 7 years?",
}

// EligibilitySchema validates step 2.
func EligibilitySchema() *forms.Schema {
	fields := make([]forms.Field, len(EligibilityQuestions))
	for i, name := range EligibilityQuestions {
		fields[i] = forms.SelectField(name, eligibilityLabels[name], YesNoOptions, forms.WithRequired(MsgRequired))
	}
	return forms.NewSchema("eligibility", fields...)
}

// ImpactMetricsSchema validates step 3. The follow-up text fields stay
// optional even when shown.
func ImpactMetricsSchema() *forms.Schema {
	return forms.NewSchema("impact_metrics",
		forms.SelectField(DetroitResident, "Are you a Detroit resident?", YesNoPreferOptions, forms.WithRequired(MsgRequired)),
		forms.SelectField(Ethnicity, "Please select your ethnicity", EthnicityOptions, forms.WithRequired(MsgRequired)),
		forms.TextField(EthnicityOther, "Please specify your ethnicity", forms.WithMaxLength(100)),
		forms.SelectField(Gender, "Please select your gender", GenderOptions, forms.WithRequired(MsgRequired)),
		forms.TextField(GenderOther, "Please specify your gender", forms.WithMaxLength(100)),
		forms.SelectField(IsVeteran, "Are you a Veteran?", YesNoPreferOptions, forms.WithRequired(MsgRequired)),
		forms.SelectField(IsImmigrant, "Are you an Immigrant to the US?", YesNoPreferOptions, forms.WithRequired(MsgRequired)),
		forms.SelectField(IsReturningCitizen, "Are you a Returning Citizen?", YesNoPreferOptions, forms.WithRequired(MsgRequired)),
	)
}

// DeveloperExperienceSchema validates step 4. Empty numbers count as 0.
func DeveloperExperienceSchema() *forms.Schema {
	return forms.NewSchema("developer_experience",
		forms.NumberField(YearsDeveloperExperience, "Years of experience as a developer",
			forms.WithValidator(forms.Range(0, 60))),
		forms.NumberField(YearsOtherExperience, "Years of other relevant experience",
			forms.WithValidator(forms.Range(0, 60))),
		forms.NumberField(ProjectsCompleted, "Projects completed and/or in progress",
			forms.WithValidator(forms.Range(0, 999))),
		forms.SelectField(ProjectStartingSoon, "Do you have at least one project that can begin in the next 12 months?",
			YesNoOptions, forms.WithRequired(MsgSelectOption)),
	)
}

// DocumentsSchema declares step 5. Every document is optional, so the step
// always passes.
func DocumentsSchema() *forms.Schema {
	return forms.NewSchema("documents",
		forms.FileField(FirmOverview, "Firm overview with growth strategy"),
		forms.FileField(OnePager, "One pager on current and previous developments or projects"),
		forms.FileField(TeamBios, "Bios/Resumés for each team member"),
		forms.FileField(ProjectBudget, "Upcoming Project: Budget with Sources and Uses"),
		forms.FileField(ProjectTimeline, "Upcoming Project: Development Timeline"),
	)
}

// AcknowledgementsSchema validates step 6.
func AcknowledgementsSchema() *forms.Schema {
	return forms.NewSchema("acknowledgements",
		forms.AcknowledgementField(AcknowledgementTruthful,
			"The information included is truthful and accurate to the best of my knowledge.", MsgAcknowledgement),
		forms.AcknowledgementField(AcknowledgementNotGuaranteed,
			"I understand that I am only being considered for a loan and am not guaranteed any kind of financing.", MsgAcknowledgement),
		forms.AcknowledgementField(AcknowledgementAuthorize,
			"I authorize the credit and due diligence investigations necessary to evaluate my application.", MsgAcknowledgement),
	)
}

// Steps returns the six wizard steps in order.
func Steps() []wizard.Step {
	return []wizard.Step{
		{ID: "applicant_info", Title: "Applicant Information", Description: "Your personal details", Schema: ApplicantInfoSchema()},
		{ID: "eligibility", Title: "Eligibility Questions", Description: "Qualification check", Schema: EligibilitySchema()},
		{ID: "impact_metrics", Title: "Impact Metrics", Description: "Mission alignment", Schema: ImpactMetricsSchema()},
		{ID: "developer_experience", Title: "Developer Experience", Description: "Your background", Schema: DeveloperExperienceSchema()},
		{ID: "documents", Title: "Supporting Documents", Description: "Upload files", Schema: DocumentsSchema()},
		{ID: "acknowledgements", Title: "Acknowledgements", Description: "Final agreements", Schema: AcknowledgementsSchema()},
	}
}

// FullSchema merges every step schema.
func FullSchema() *forms.Schema {
	steps := Steps()
	schemas := make([]*forms.Schema, len(steps))
	for i, s := range steps {
		schemas[i] = s.Schema
	}
	return forms.Merge("application", schemas...)
}

// StepSchema returns the schema of the step at index, or nil when index is
// out of range.
func StepSchema(index int) *forms.Schema {
	steps := Steps()
	if index < 0 || index >= len(steps) {
		return nil
	}
	return steps[index].Schema
}

// WizardConfig wires the application into a wizard.
func WizardConfig(observer wizard.TransitionObserver) wizard.Config {
	return wizard.Config{
		Steps:    Steps(),
		Initial:  NewDraft,
		Visible:  VisibleFields,
		Build:    BuildSubmission,
		Full:     FullSchema(),
		Observer: observer,
	}
}

package application

import "github.com/gabrielmiguelok/fundingintake/pkg/forms"

// NewDraft returns an empty application: blank text, zero numbers,
// unchecked acknowledgements. Select answers and documents start absent.
func NewDraft() forms.Values {
	draft := forms.Values{
		FirstName:       "",
		LastName:        "",
		BusinessName:    "",
		AmountRequested: 0.0,
		JobTitle:        "",
		HomeAddress:     "",
		HomeCity:        "",
		HomeState:       "",
		HomeZipCode:     "",
		ContactEmail:    "",
		PhoneNumber:     "",

		DetroitResident:    "",
		Ethnicity:          "",
		EthnicityOther:     "",
		Gender:             "",
		GenderOther:        "",
		IsVeteran:          "",
		IsImmigrant:        "",
		IsReturningCitizen: "",

		YearsDeveloperExperience: 0.0,
		YearsOtherExperience:     0.0,
		ProjectsCompleted:        0.0,
	}
	for _, name := range Acknowledgements {
		draft[name] = false
	}
	return draft
}

// conditional maps a follow-up field to the field controlling it.
var conditional = map[string]string{
	EthnicityOther: Ethnicity,
	GenderOther:    Gender,
}

// ShowsFollowUp reports whether an answer reveals its follow-up text field.
func ShowsFollowUp(answer string) bool {
	return answer == OtherValue || answer == SelfDescribeValue
}

// VisibleFields returns the names of every field currently shown. The
// follow-up text fields appear only when their controlling answer asks
// for self-description.
func VisibleFields(values forms.Values) []string {
	names := FullSchema().Names()
	visible := make([]string, 0, len(names))
	for _, name := range names {
		if controller, ok := conditional[name]; ok && !ShowsFollowUp(values.String(controller)) {
			continue
		}
		visible = append(visible, name)
	}
	return visible
}

// IsVisible reports whether a single field is shown.
func IsVisible(values forms.Values, field string) bool {
	controller, ok := conditional[field]
	return !ok || ShowsFollowUp(values.String(controller))
}

package athlete

// Patch is a partial Document. A nil field is absent and leaves the
// corresponding document field untouched; a non-nil field replaces it whole.
type Patch struct {
	Profile    *Profile
	MentalLogs *[]MentalLog
	MealLogs   *[]MealLog
	Events     *[]CalendarEvent
	Contacts   *[]Contact
}

func EventsPatch(events []CalendarEvent) Patch {
	return Patch{Events: &events}
}

func MentalLogsPatch(logs []MentalLog) Patch {
	return Patch{MentalLogs: &logs}
}

func MealLogsPatch(logs []MealLog) Patch {
	return Patch{MealLogs: &logs}
}

func ContactsPatch(contacts []Contact) Patch {
	return Patch{Contacts: &contacts}
}

func ProfilePatch(profile Profile) Patch {
	return Patch{Profile: &profile}
}

func (p Patch) IsEmpty() bool {
	return p.Profile == nil &&
		p.MentalLogs == nil &&
		p.MealLogs == nil &&
		p.Events == nil &&
		p.Contacts == nil
}

// Apply returns a copy of doc with the present patch fields replaced.
// The patch values are copied as well, so later changes to the caller's
// slices do not leak into the result.
func (p Patch) Apply(doc Document) Document {
	merged := doc.Clone()
	if p.Profile != nil {
		profile := *p.Profile
		merged.Profile = &profile
	}
	if p.MentalLogs != nil {
		merged.MentalLogs = append([]MentalLog{}, *p.MentalLogs...)
	}
	if p.MealLogs != nil {
		merged.MealLogs = append([]MealLog{}, *p.MealLogs...)
	}
	if p.Events != nil {
		merged.Events = append([]CalendarEvent{}, *p.Events...)
	}
	if p.Contacts != nil {
		merged.Contacts = append([]Contact{}, *p.Contacts...)
	}
	return merged
}

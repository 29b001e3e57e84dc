package booking

import "vaccine_booker/domain/entities"

// Locators for the regional booking portal, grouped by screen.
var (
	// Login
	taxCodeField    = entities.Locator{By: entities.ByName, Pattern: "cod_fiscale"}
	cardNumberField = entities.Locator{By: entities.ByName, Pattern: "num_tessera"}
	consentCheckbox = entities.Locator{By: entities.ByXPath, Pattern: "(//input[@type='checkbox'])[last()]"}
	confirmButton   = buttonLabelled("Conferma")

	// Location
	locationHeading = entities.Locator{By: entities.ByXPath, Pattern: `//h2[normalize-space()="Selezionare una sede"]`}
	locationButtons = entities.Locator{By: entities.ByXPath, Pattern: `//h2[normalize-space()="Selezionare una sede"]/following-sibling::button`}
	backToService   = buttonLabelled("Torna a scelta servizio")
	backToLogin     = buttonLabelled("Torna a identificazione")

	// Calendar
	calendarReady   = entities.Locator{By: entities.ByCSS, Pattern: "td.fc-day-other"}
	calendarDays    = entities.Locator{By: entities.ByCSS, Pattern: "td.fc-daygrid-day:not(.fc-day-other)"}
	nextMonthButton = entities.Locator{By: entities.ByCSS, Pattern: "button.fc-next-button"}

	// Time slots
	timeSlotButtons = entities.Locator{By: entities.ByXPath, Pattern: "//h2[text()[contains(.,'Fasce disponibili')]]/following-sibling::button"}

	// Personal details
	surnameField = entities.Locator{By: entities.ByName, Pattern: "cognome"}
	nameField    = entities.Locator{By: entities.ByName, Pattern: "nome"}
	emailField   = entities.Locator{By: entities.ByName, Pattern: "email"}
	phoneField   = entities.Locator{By: entities.ByName, Pattern: "cellulare"}

	// Result
	resultPopup = entities.Locator{By: entities.ByClassName, Pattern: "swal2-popup"}
)

// buttonLabelled matches a button by its exact visible label
func buttonLabelled(label string) entities.Locator {
	return entities.Locator{By: entities.ByXPath, Pattern: `//button[normalize-space()="` + label + `"]`}
}

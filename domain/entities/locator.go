package entities

import "fmt"

// LocatorStrategy is the selector kind understood by the browser drivers
type LocatorStrategy string

const (
	ByName      LocatorStrategy = "name"
	ByXPath     LocatorStrategy = "xpath"
	ByCSS       LocatorStrategy = "css"
	ByClassName LocatorStrategy = "class"
)

// Locator identifies one or more elements on the current page
type Locator struct {
	By      LocatorStrategy
	Pattern string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Pattern)
}

// Readiness is the condition an element must satisfy before it is returned
type Readiness string

const (
	Present   Readiness = "present"
	Visible   Readiness = "visible"
	Clickable Readiness = "clickable"
)

package browser

import (
	"fmt"
	"os"
	"strconv"

	"vaccine_booker/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Driver names accepted in BROWSER_DRIVER
const (
	DriverFirefox    = "firefox"
	DriverChrome     = "chrome"
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// NewFromEnv - opens the browser selected by BROWSER_DRIVER (firefox by default)
func NewFromEnv(logger *logrus.Logger) (interfaces.Browser, error) {
	driver := os.Getenv("BROWSER_DRIVER")
	if driver == "" {
		driver = DriverFirefox
	}

	headless, _ := strconv.ParseBool(os.Getenv("BROWSER_HEADLESS"))
	logger.Infof("Starting %s browser (headless: %t)", driver, headless)

	var (
		b   interfaces.Browser
		err error
	)
	switch driver {
	case DriverFirefox:
		b, err = asBrowser(NewFirefoxController(logger, headless))
	case DriverChrome:
		b, err = asBrowser(NewChromeController(logger, headless))
	case DriverPlaywright:
		b, err = NewBrowserController(logger, headless)
	case DriverChromedp:
		b, err = asBrowser(NewChromedpController(logger, headless))
	default:
		err = fmt.Errorf("unknown BROWSER_DRIVER %q (want %s, %s, %s or %s)",
			driver, DriverFirefox, DriverChrome, DriverPlaywright, DriverChromedp)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// asBrowser keeps a failed constructor from yielding a non-nil interface
// around a nil pointer
func asBrowser[T interfaces.Browser](b T, err error) (interfaces.Browser, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

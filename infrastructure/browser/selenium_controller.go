package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

const (
	geckoDriverPort  = 4444
	chromeDriverPort = 9515

	// defaultImplicitWait matches what the portal needs between page swaps
	defaultImplicitWait = 2 * time.Second
)

type SeleniumController struct {
	wd           selenium.WebDriver
	service      *selenium.Service
	logger       *logrus.Logger
	implicitWait time.Duration
}

// findDriver - finds the WebDriver executable, honouring BROWSER_DRIVER_PATH
func findDriver(name string) (string, error) {
	if path := os.Getenv("BROWSER_DRIVER_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	commonPaths := []string{
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/usr/bin", name),
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join(os.Getenv("HOME"), "bin", name),
	}

	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%s not found. Please install it or set BROWSER_DRIVER_PATH environment variable", name)
}

// findBrowserBinary - finds the browser executable, honouring BROWSER_BINARY_PATH
func findBrowserBinary(candidates []string) string {
	if path := os.Getenv("BROWSER_BINARY_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, path := range candidates {
		if filepath.IsAbs(path) {
			if _, err := os.Stat(path); err == nil {
				return path
			}
			continue
		}
		if found, err := exec.LookPath(path); err == nil {
			return found
		}
	}

	return ""
}

var firefoxBinaries = []string{
	"/Applications/Firefox.app/Contents/MacOS/firefox",
	"/usr/bin/firefox",
	`C:\Program Files\Mozilla Firefox\firefox.exe`,
	"firefox",
}

var chromeBinaries = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	"google-chrome",
	"chromium",
}

// NewFirefoxController - starts geckodriver and a Firefox session
func NewFirefoxController(logger *logrus.Logger, headless bool) (*SeleniumController, error) {
	driverPath, err := findDriver("geckodriver")
	if err != nil {
		return nil, fmt.Errorf("failed to find geckodriver: %w", err)
	}
	logger.Infof("Using GeckoDriver at: %s", driverPath)

	service, err := selenium.NewGeckoDriverService(driverPath, geckoDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start geckodriver: %w", err)
	}

	ffCaps := firefox.Capabilities{}
	if binary := findBrowserBinary(firefoxBinaries); binary != "" {
		logger.Infof("Using Firefox binary at: %s", binary)
		ffCaps.Binary = binary
	}
	if headless {
		ffCaps.Args = append(ffCaps.Args, "-headless")
	}

	caps := selenium.Capabilities{"browserName": "firefox"}
	caps.AddFirefox(ffCaps)

	return newSeleniumController(logger, service, caps, fmt.Sprintf("http://localhost:%d", geckoDriverPort))
}

// NewChromeController - starts chromedriver and a Chrome session
func NewChromeController(logger *logrus.Logger, headless bool) (*SeleniumController, error) {
	driverPath, err := findDriver("chromedriver")
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	service, err := selenium.NewChromeDriverService(driverPath, chromeDriverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	chromeCaps := chrome.Capabilities{
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if headless {
		chromeCaps.Args = append(chromeCaps.Args, "--headless=new")
	}
	if binary := findBrowserBinary(chromeBinaries); binary != "" {
		logger.Infof("Using Chrome binary at: %s", binary)
		chromeCaps.Path = binary
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chromeCaps)

	return newSeleniumController(logger, service, caps, fmt.Sprintf("http://localhost:%d/wd/hub", chromeDriverPort))
}

func newSeleniumController(logger *logrus.Logger, service *selenium.Service, caps selenium.Capabilities, url string) (*SeleniumController, error) {
	wd, err := selenium.NewRemote(caps, url)
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "binary") {
			return nil, fmt.Errorf("failed to create webdriver: browser not found. Please install it or set BROWSER_BINARY_PATH environment variable. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	s := &SeleniumController{
		wd:      wd,
		service: service,
		logger:  logger,
	}
	if err := s.SetImplicitWait(context.Background(), defaultImplicitWait); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Navigate - navigates browser to specified URL
func (s *SeleniumController) Navigate(ctx context.Context, url string) error {
	s.logger.Debugf("Navigating to: %s", url)
	return s.wd.Get(url)
}

// Refresh - reloads the current page
func (s *SeleniumController) Refresh(ctx context.Context) error {
	s.logger.Debug("Refreshing page")
	return s.wd.Refresh()
}

// FindElement - finds the first element matching the locator
func (s *SeleniumController) FindElement(ctx context.Context, locator entities.Locator) (interfaces.Element, error) {
	by, err := seleniumBy(locator.By)
	if err != nil {
		return nil, err
	}

	element, err := s.wd.FindElement(by, locator.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrElementNotFound, locator, err)
	}
	return &seleniumElement{we: element}, nil
}

// FindElements - finds every element matching the locator
func (s *SeleniumController) FindElements(ctx context.Context, locator entities.Locator) ([]interfaces.Element, error) {
	by, err := seleniumBy(locator.By)
	if err != nil {
		return nil, err
	}

	found, err := s.wd.FindElements(by, locator.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", locator, err)
	}

	elements := make([]interfaces.Element, 0, len(found))
	for _, we := range found {
		elements = append(elements, &seleniumElement{we: we})
	}
	return elements, nil
}

// SetImplicitWait - sets the driver-side lookup timeout
func (s *SeleniumController) SetImplicitWait(ctx context.Context, timeout time.Duration) error {
	if err := s.wd.SetImplicitWaitTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set implicit wait: %w", err)
	}
	s.implicitWait = timeout
	return nil
}

// ImplicitWait - returns the driver-side lookup timeout
func (s *SeleniumController) ImplicitWait() time.Duration {
	return s.implicitWait
}

// Close - closes browser and stops the driver service
func (s *SeleniumController) Close() error {
	if s.wd != nil {
		s.wd.Quit()
		s.wd = nil
	}
	if s.service != nil {
		s.service.Stop()
		s.service = nil
	}
	return nil
}

func seleniumBy(by entities.LocatorStrategy) (string, error) {
	switch by {
	case entities.ByName:
		return selenium.ByName, nil
	case entities.ByXPath:
		return selenium.ByXPATH, nil
	case entities.ByCSS:
		return selenium.ByCSSSelector, nil
	case entities.ByClassName:
		return selenium.ByClassName, nil
	default:
		return "", fmt.Errorf("unsupported locator strategy: %s", by)
	}
}

type seleniumElement struct {
	we selenium.WebElement
}

func (e *seleniumElement) Text(ctx context.Context) (string, error) {
	return e.we.Text()
}

// nilValueMessage is how the client reports a null reply, which for an
// attribute means it is not set
const nilValueMessage = "nil return value"

func (e *seleniumElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	return attributeResult(e.we.GetAttribute(name))
}

func attributeResult(value string, err error) (string, bool, error) {
	switch {
	case err == nil:
		return value, true, nil
	case err.Error() == nilValueMessage:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("failed to read attribute: %w", err)
	}
}

func (e *seleniumElement) Click(ctx context.Context) error {
	return e.we.Click()
}

func (e *seleniumElement) SendKeys(ctx context.Context, text string) error {
	return e.we.SendKeys(text)
}

func (e *seleniumElement) IsDisplayed(ctx context.Context) (bool, error) {
	return e.we.IsDisplayed()
}

func (e *seleniumElement) IsEnabled(ctx context.Context) (bool, error) {
	return e.we.IsEnabled()
}

// Ensure SeleniumController implements Browser interface
var _ interfaces.Browser = (*SeleniumController)(nil)

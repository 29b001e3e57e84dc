package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"vaccine_booker/domain/entities"

	"gopkg.in/yaml.v3"
)

const (
	dateLayout = "2006-01-02"

	DefaultPortalURL    = "https://vaccinicovid.regione.veneto.it"
	DefaultServiceLabel = "Nati dal 1962 al 2009"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// scalar accepts any YAML scalar as text, so identifiers such as the ULSS
// number or a phone number may be written unquoted
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

// file mirrors the keys of config.yaml
type file struct {
	Ulss       scalar   `yaml:"ulss"`
	Nome       scalar   `yaml:"nome"`
	Cognome    scalar   `yaml:"cognome"`
	CodFiscale scalar   `yaml:"cod_fiscale"`
	NumTessera scalar   `yaml:"num_tessera"`
	Email      scalar   `yaml:"email"`
	Cellulare  scalar   `yaml:"cellulare"`
	Priorita   []string `yaml:"priorita_sedi"`
	Blacklist  []string `yaml:"blacklist"`
	DataMinima scalar   `yaml:"data_minima"`
	DataLimite scalar   `yaml:"data_limite"`
	Attesa     float64  `yaml:"tempo_attesa"`

	Servizio           string `yaml:"servizio"`
	Portale            string `yaml:"portale"`
	StrategiaSediVuote string `yaml:"strategia_sedi_vuote"`
	StrategiaFasce     string `yaml:"strategia_fasce"`
}

// Load reads and validates the settings file at path
func Load(path string) (*entities.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML settings document
func Parse(data []byte) (*entities.Settings, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return f.settings()
}

func (f *file) settings() (*entities.Settings, error) {
	required := []struct {
		key   string
		value scalar
	}{
		{"ulss", f.Ulss},
		{"nome", f.Nome},
		{"cognome", f.Cognome},
		{"cod_fiscale", f.CodFiscale},
		{"num_tessera", f.NumTessera},
		{"email", f.Email},
		{"cellulare", f.Cellulare},
	}
	for _, r := range required {
		if strings.TrimSpace(string(r.value)) == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, r.key)
		}
	}

	minDate, err := parseDate("data_minima", f.DataMinima)
	if err != nil {
		return nil, err
	}
	maxDate, err := parseDate("data_limite", f.DataLimite)
	if err != nil {
		return nil, err
	}
	if maxDate.Before(minDate) {
		return nil, fmt.Errorf("%w: data_limite %s is before data_minima %s", ErrInvalidConfig, f.DataLimite, f.DataMinima)
	}

	if f.Attesa < 0 {
		return nil, fmt.Errorf("%w: tempo_attesa must not be negative", ErrInvalidConfig)
	}

	noLocation := entities.NoLocationGoBack
	switch s := entities.NoLocationStrategy(f.StrategiaSediVuote); s {
	case "":
	case entities.NoLocationGoBack, entities.NoLocationRefresh:
		noLocation = s
	default:
		return nil, fmt.Errorf("%w: unknown strategia_sedi_vuote %q", ErrInvalidConfig, s)
	}

	slots := entities.SlotFirst
	switch s := entities.SlotStrategy(f.StrategiaFasce); s {
	case "":
	case entities.SlotFirst, entities.SlotRandom:
		slots = s
	default:
		return nil, fmt.Errorf("%w: unknown strategia_fasce %q", ErrInvalidConfig, s)
	}

	preferences := entities.UniquePreferences(nonEmpty(f.Priorita))

	return &entities.Settings{
		Facility:           strings.TrimSpace(string(f.Ulss)),
		Name:               string(f.Nome),
		Surname:            string(f.Cognome),
		TaxCode:            string(f.CodFiscale),
		CardNumber:         string(f.NumTessera),
		Email:              string(f.Email),
		Phone:              string(f.Cellulare),
		Preferences:        preferences,
		Blacklist:          nonEmpty(f.Blacklist),
		MinDate:            minDate,
		MaxDate:            maxDate,
		BaseWait:           time.Duration(f.Attesa * float64(time.Second)),
		PortalURL:          strings.TrimRight(orDefault(f.Portale, DefaultPortalURL), "/"),
		ServiceLabel:       orDefault(f.Servizio, DefaultServiceLabel),
		NoLocationStrategy: noLocation,
		SlotStrategy:       slots,
	}, nil
}

func parseDate(key string, value scalar) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
	}
	t, err := time.Parse(dateLayout, string(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", ErrInvalidConfig, key, value)
	}
	return t, nil
}

// nonEmpty drops blank entries, which would otherwise match every location
func nonEmpty(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return kept
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

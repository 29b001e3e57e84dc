package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"vaccine_booker/application/booking"
	"vaccine_booker/domain/entities"
	"vaccine_booker/domain/interfaces"
	"vaccine_booker/infrastructure/browser"
	"vaccine_booker/infrastructure/config"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultConfigPath = "config.yaml"

// bookingRunner is the part of booking.Booker the terminal drives
type bookingRunner interface {
	Run(ctx context.Context) (*entities.Booking, error)
}

type TerminalInterface struct {
	booker      bookingRunner
	browserCtrl interfaces.Browser
	ack         interfaces.Acknowledger
	out         io.Writer
	logger      *logrus.Logger
}

func NewTerminalInterface() (*TerminalInterface, error) {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env file is optional
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	logger := newLogger(os.Getenv("LOG_LEVEL"))

	configPath := os.Getenv("BOOKER_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", configPath, err)
	}

	browserCtrl, err := browser.NewFromEnv(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	booker := booking.NewBooker(browserCtrl, settings, logger)

	return &TerminalInterface{
		booker:      booker,
		browserCtrl: browserCtrl,
		ack:         &keystrokeAcknowledger{in: os.Stdin, out: os.Stdout},
		out:         os.Stdout,
		logger:      logger,
	}, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// Run books an appointment, blocking until success or until ctx is cancelled
func (t *TerminalInterface) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "Vaccine booking")
	fmt.Fprintln(t.out, "===============")
	fmt.Fprintln(t.out, "Press Ctrl+C to stop")
	fmt.Fprintln(t.out)

	result, err := t.booker.Run(ctx)
	if err != nil {
		return err
	}

	printBooking(t.out, result)

	// The booking is done; a failed prompt only ends the wait early
	if err := t.ack.WaitForAcknowledgement(ctx); err != nil {
		t.logger.Warnf("Acknowledgement failed: %v", err)
	}
	return nil
}

func printBooking(w io.Writer, b *entities.Booking) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Location: %s\n", b.Location)
	fmt.Fprintf(w, "Date:     %s\n", b.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "Slot:     %s\n", b.Slot)
	fmt.Fprintf(w, "Attempts: %d\n", b.Cycles)
}

func (t *TerminalInterface) Close() error {
	return t.browserCtrl.Close()
}

package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// keystrokeAcknowledger waits for a single key press on a terminal, or for a
// full line when stdin is redirected
type keystrokeAcknowledger struct {
	in  *os.File
	out io.Writer
}

// WaitForAcknowledgement returns once a key is read or ctx is done. Raw mode
// is restored before returning in both cases.
func (k *keystrokeAcknowledger) WaitForAcknowledgement(ctx context.Context) error {
	fmt.Fprintln(k.out, "Press any key to exit")

	fd := int(k.in.Fd())
	read := k.readLine
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to switch terminal to raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
		read = k.readKey
	}

	done := make(chan error, 1)
	go func() {
		done <- read()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (k *keystrokeAcknowledger) readKey() error {
	buf := make([]byte, 1)
	_, err := k.in.Read(buf)
	return err
}

func (k *keystrokeAcknowledger) readLine() error {
	_, err := bufio.NewReader(k.in).ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}

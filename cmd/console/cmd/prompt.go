package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// promptCredentials asks for whichever of email and password is missing.
func promptCredentials(email, password *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func promptRegistration(name, email, password, phone *string) error {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Full name").Value(name),
		huh.NewInput().Title("Email").Value(email),
		huh.NewInput().Title("Password").Description("At least 8 characters with upper and lower case letters and a number").EchoMode(huh.EchoModePassword).Value(password),
		huh.NewInput().Title("Phone (optional)").Value(phone),
	))
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func confirm(message string) (bool, error) {
	confirmed := false
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(message).Value(&confirmed)))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// isInteractive returns true if stdin is a terminal.
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

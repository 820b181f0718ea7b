package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/mfi-console/fetch"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/pterm/pterm"
)

// printEvent shows list activity the way a toast would.
func printEvent(e fetch.Event) {
	switch e.Kind {
	case fetch.EventConfirmed:
		pterm.Success.Printf("%s %s updated\n", singular(e.Resource), e.Key)
	case fetch.EventRolledBack:
		pterm.Error.Printf("%s %s was not updated: %s\n", singular(e.Resource), e.Key, apperrors.UserMessage(e.Err))
	case fetch.EventFetchFailed:
		pterm.Warning.Printf("Could not refresh %s: %s\n", e.Resource, errorMessage(e.Err))
	}
}

func renderTable(header []string, rows [][]string) error {
	if len(rows) == 0 {
		pterm.Info.Println("Nothing to show")
		return nil
	}
	data := append(pterm.TableData{header}, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func singular(resource string) string {
	return strings.TrimSuffix(resource, "s")
}

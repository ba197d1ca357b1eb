package cmd

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/message"
)

// newPrinter returns a printer for the user's preferred locales, falling
// back to en-US when none can be detected.
func newPrinter(l log.Logger) *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		l.Debug("failed to detect locale", "err", err)
	}
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}
	return message.NewPrinter(message.MatchLanguage(locales...))
}

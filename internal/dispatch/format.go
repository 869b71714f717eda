package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/weather-alert-pipeline/internal/domain"
)

const warningsURL = "https://www.knmi.nl/nederland-nu/weer/waarschuwingen/"

const messageTimeLayout = "2006-01-02 15:04 MST"

// formatAlertMessage renders one alert as a Markdown message body. The
// description prefers English, falls back to Dutch, then to any available
// language in deterministic order.
func formatAlertMessage(location string, alert domain.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Phenomenon*: %s\n", alert.Phenomenon)
	fmt.Fprintf(&b, "*Region*: %s\n", location)
	fmt.Fprintf(&b, "*Code*: %s\n", alert.Code)
	fmt.Fprintf(&b, "*Start time*: %s\n", alert.StartTime.Format(messageTimeLayout))
	fmt.Fprintf(&b, "*End time*: %s\n", alert.EndTime.Format(messageTimeLayout))

	if text := pickText(alert.Text); text != "" {
		fmt.Fprintf(&b, "*Description*: %s\n", text)
	}

	fmt.Fprintf(&b, "\n[More info](%s%s)", warningsURL, regionSlug(location))
	return b.String()
}

func pickText(texts map[string]string) string {
	for _, lang := range []string{"EN", "NL"} {
		if text := strings.TrimSpace(texts[lang]); text != "" {
			return text
		}
	}

	langs := make([]string, 0, len(texts))
	for lang := range texts {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if text := strings.TrimSpace(texts[lang]); text != "" {
			return text
		}
	}
	return ""
}

// regionSlug maps a location display name onto its path segment on the
// public warnings page, e.g. "Zuid-Holland" -> "zuid-holland".
func regionSlug(location string) string {
	return strings.ReplaceAll(strings.ToLower(location), " ", "-")
}

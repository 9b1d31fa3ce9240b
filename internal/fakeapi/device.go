package fakeapi

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent renders a User-Agent header as "<browser> on <os>" for
// activity log entries.
func ParseUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return "Unknown Device"
	}

	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := parsed.OS()
	if os == "" {
		os = parsed.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	if parsed.Mobile() {
		os += " (mobile)"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, os))
}

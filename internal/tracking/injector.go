// Package tracking attaches delivery identifiers to outgoing messages and
// serves the open/click endpoints those identifiers report back to.
package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// href="http(s)://..." targets in single or double quotes
var hrefPattern = regexp.MustCompile(`(?i)href=(["'])(https?://[^"']+)(["'])`)

// closing body tag in any letter case
var bodyClosePattern = regexp.MustCompile(`(?i)</body>`)

// InjectOpenBeacon appends a 1x1 invisible image pointing at the open
// endpoint for the tracking identifier. The beacon is placed immediately
// before </body> when present, otherwise appended at the end. A retried
// send reuses the same identifier; if the beacon is already present the
// body is returned unchanged so a message never carries two beacons.
func InjectOpenBeacon(html, baseURL, trackingID string) string {
	beaconURL := fmt.Sprintf("%s/track/open/%s", strings.TrimRight(baseURL, "/"), trackingID)
	if strings.Contains(html, beaconURL) {
		return html
	}

	beacon := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none;width:1px;height:1px" />`, beaconURL)

	if locs := bodyClosePattern.FindAllStringIndex(html, -1); len(locs) > 0 {
		idx := locs[len(locs)-1][0]
		return html[:idx] + beacon + html[idx:]
	}
	return html + beacon
}

// RewriteLinks replaces every absolute http(s) hyperlink target with the
// click-tracking redirect for the tracking identifier. Relative targets,
// mailto: and other schemes are left untouched. Links already pointing at
// the redirect endpoint are not wrapped again, so rerunning on a retried
// message is safe.
func RewriteLinks(html, baseURL, trackingID string) string {
	base := strings.TrimRight(baseURL, "/")
	clickPrefix := base + "/track/click/"

	return hrefPattern.ReplaceAllStringFunc(html, func(match string) string {
		parts := hrefPattern.FindStringSubmatch(match)
		quote, target := parts[1], parts[2]

		if strings.HasPrefix(target, clickPrefix) {
			return match
		}

		redirect := fmt.Sprintf("%s/track/click/%s?url=%s", base, trackingID, url.QueryEscape(target))
		return "href=" + quote + redirect + parts[3]
	})
}

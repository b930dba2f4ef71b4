package normalizer

import (
	"regexp"
)

// signatureRegex locates the guest's own message text embedded inside the
// notification template. That text is identical across every recipient copy
// of the same event, while the surrounding boilerplate is not.
var signatureRegex = regexp.MustCompile(`(?is)has sent you a message about your.*?\.\s*\n\s*\n\s*(.*?)\s*\n\s*reply`)

// ExtractSignature returns the normalized core-message text of a recognized
// embedded-message region, or empty when no such region is present.
func (n *Normalizer) ExtractSignature(body string) string {
	match := signatureRegex.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return n.normalizeText(match[1])
}

package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hostwatch/mailsift/pkg/models"
)

// hashBodyLimit caps how much normalized body feeds the content hash.
// Marketplace notification bodies differ only in trailing boilerplate well
// past this point.
const hashBodyLimit = 1000

// Normalizer canonicalizes email fields for pattern matching and hashing
type Normalizer struct {
	whitespaceRegex *regexp.Regexp
	invisibleRegex  *regexp.Regexp
	urlRegex        *regexp.Regexp
	emailRegex      *regexp.Regexp
	phoneRegex      *regexp.Regexp
	amountRegex     *regexp.Regexp
	dateRegex       *regexp.Regexp
	timeRegex       *regexp.Regexp
	wordDecoder     *mime.WordDecoder
}

// New creates a new normalizer
func New() *Normalizer {
	return &Normalizer{
		whitespaceRegex: regexp.MustCompile(`\s+`),
		// Remove invisible Unicode characters (zero-width spaces, etc.)
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}]+`),
		urlRegex:       regexp.MustCompile(`https?://\S+`),
		emailRegex:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		phoneRegex:     regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		amountRegex:    regexp.MustCompile(`\$\d+(?:\.\d{2})?`),
		dateRegex:      regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		timeRegex:      regexp.MustCompile(`\b\d{1,2}:\d{2}\s*(?:AM|PM|am|pm)?\b`),
		wordDecoder:    &mime.WordDecoder{},
	}
}

// Normalize derives the canonical form of an email. Deterministic and
// side-effect free; failures degrade to coarser text, never abort.
func (n *Normalizer) Normalize(e *models.InboundEmail) *models.NormalizedEmail {
	body := e.BodyText
	if body == "" && e.BodyHTML != "" {
		body = n.StripHTML(e.BodyHTML)
	}
	subject := n.decodeSubject(e.Subject)

	normalizedBody := n.StripVolatile(n.normalizeText(body))

	norm := &models.NormalizedEmail{
		EmailID:           e.ID,
		Sender:            e.Sender,
		Subject:           subject,
		Body:              body,
		NormalizedSender:  n.normalizeText(e.Sender),
		NormalizedSubject: n.normalizeText(subject),
		NormalizedBody:    normalizedBody,
		MessageSignature:  n.ExtractSignature(body),
		ReceivedAt:        e.ReceivedAt,
	}
	norm.ContentHash = n.contentHash(norm.NormalizedSender, normalizedBody)
	return norm
}

// StripHTML converts HTML to plain text. On parse failure the raw markup is
// returned so matching degrades instead of aborting.
func (n *Normalizer) StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, head, meta, link").Remove()

	// Newlines before block elements keep phrases from running together
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	text := doc.Text()
	text = n.invisibleRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// StripVolatile replaces recipient-specific substrings with stable
// placeholders so broadcast variants of one event normalize identically
func (n *Normalizer) StripVolatile(text string) string {
	text = n.urlRegex.ReplaceAllString(text, "[URL]")
	text = n.emailRegex.ReplaceAllString(text, "[EMAIL]")
	text = n.phoneRegex.ReplaceAllString(text, "[PHONE]")
	text = n.amountRegex.ReplaceAllString(text, "[AMOUNT]")
	text = n.dateRegex.ReplaceAllString(text, "[DATE]")
	text = n.timeRegex.ReplaceAllString(text, "[TIME]")
	return strings.TrimSpace(n.whitespaceRegex.ReplaceAllString(text, " "))
}

// normalizeText lower-cases and collapses whitespace
func (n *Normalizer) normalizeText(text string) string {
	text = n.invisibleRegex.ReplaceAllString(text, "")
	text = strings.ToLower(strings.TrimSpace(text))
	return n.whitespaceRegex.ReplaceAllString(text, " ")
}

// decodeSubject decodes RFC 2047 encoded-words. The same notification is
// often broadcast once with a plain subject and once UTF-8 encoded.
func (n *Normalizer) decodeSubject(subject string) string {
	if !strings.Contains(subject, "=?") {
		return subject
	}
	decoded, err := n.wordDecoder.DecodeHeader(subject)
	if err != nil {
		return subject
	}
	return decoded
}

// contentHash digests normalized sender and body. Subject is excluded:
// subjects vary per recipient for identical content.
func (n *Normalizer) contentHash(sender, body string) string {
	if len(body) > hashBodyLimit {
		body = body[:hashBodyLimit]
	}
	sum := sha256.Sum256([]byte(sender + "|" + body))
	return hex.EncodeToString(sum[:])
}

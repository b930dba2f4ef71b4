package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostwatch/mailsift/pkg/models"
)

func TestNormalizeHashIgnoresSubject(t *testing.T) {
	n := New()

	a := &models.InboundEmail{
		ID:       1,
		Sender:   "noreply@mail.turo.com",
		Subject:  "Sarah sent you a message",
		BodyText: "Sarah has a question about the pickup location.",
	}
	b := &models.InboundEmail{
		ID:       2,
		Sender:   "noreply@mail.turo.com",
		Subject:  "Re: Your reservation #4521",
		BodyText: "Sarah has a question about the pickup location.",
	}

	normA := n.Normalize(a)
	normB := n.Normalize(b)

	require.NotEmpty(t, normA.ContentHash)
	assert.Equal(t, normA.ContentHash, normB.ContentHash,
		"same sender and body must hash identically regardless of subject")
}

func TestNormalizeHashDependsOnSender(t *testing.T) {
	n := New()

	a := n.Normalize(&models.InboundEmail{Sender: "noreply@mail.turo.com", BodyText: "same body"})
	b := n.Normalize(&models.InboundEmail{Sender: "other@mail.turo.com", BodyText: "same body"})

	assert.NotEqual(t, a.ContentHash, b.ContentHash)
}

func TestNormalizeHashSurvivesVolatileDifferences(t *testing.T) {
	n := New()

	a := n.Normalize(&models.InboundEmail{
		Sender:   "noreply@mail.turo.com",
		BodyText: "Your payout of $142.50 is on the way. Track it at https://turo.com/payouts/abc123",
	})
	b := n.Normalize(&models.InboundEmail{
		Sender:   "noreply@mail.turo.com",
		BodyText: "Your payout of $87.25 is on the way. Track it at https://turo.com/payouts/xyz789",
	})

	assert.Equal(t, a.ContentHash, b.ContentHash,
		"amounts and URLs are volatile and must not affect the hash")
}

func TestStripVolatile(t *testing.T) {
	n := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "url",
			input:    "visit https://turo.com/trips/123 now",
			expected: "visit [URL] now",
		},
		{
			name:     "email address",
			input:    "contact host-4521@reply.turo.com please",
			expected: "contact [EMAIL] please",
		},
		{
			name:     "phone",
			input:    "call 415-555-0172 today",
			expected: "call [PHONE] today",
		},
		{
			name:     "amount",
			input:    "you earned $142.50 this week",
			expected: "you earned [AMOUNT] this week",
		},
		{
			name:     "date and time",
			input:    "pickup on 3/15/2025 at 10:30 AM",
			expected: "pickup on [DATE] at [TIME]",
		},
		{
			name:     "whitespace collapsed",
			input:    "too   many\n\nspaces",
			expected: "too many spaces",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.StripVolatile(tt.input))
		})
	}
}

func TestStripHTML(t *testing.T) {
	n := New()

	html := `<html><head><style>body { color: red; }</style></head>
		<body><script>alert("x")</script>
		<h1>Trip booked</h1><p>Your car is reserved.</p></body></html>`

	text := n.StripHTML(html)
	assert.Contains(t, text, "Trip booked")
	assert.Contains(t, text, "Your car is reserved.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color: red")
}

func TestStripHTMLBlockBoundaries(t *testing.T) {
	n := New()

	text := n.StripHTML("<div>first line</div><div>second line</div>")
	assert.NotContains(t, text, "linesecond", "block elements must not run together")
}

func TestNormalizeFallsBackToHTMLBody(t *testing.T) {
	n := New()

	norm := n.Normalize(&models.InboundEmail{
		Sender:   "noreply@mail.turo.com",
		BodyHTML: "<p>Marcus has sent you a message</p>",
	})
	assert.Contains(t, norm.NormalizedBody, "marcus has sent you a message")
}

func TestNormalizeDecodesEncodedSubject(t *testing.T) {
	n := New()

	plain := n.Normalize(&models.InboundEmail{
		Sender:   "noreply@mail.turo.com",
		Subject:  "Trip booked!",
		BodyText: "x",
	})
	encoded := n.Normalize(&models.InboundEmail{
		Sender:   "noreply@mail.turo.com",
		Subject:  "=?UTF-8?Q?Trip_booked!?=",
		BodyText: "x",
	})

	assert.Equal(t, plain.NormalizedSubject, encoded.NormalizedSubject)
}

func TestExtractSignature(t *testing.T) {
	n := New()

	body := "Sarah has sent you a message about your Tesla Model 3.\n\n" +
		"Hi! Is the car available for pickup at 9am instead?\n" +
		"Reply to respond to Sarah."

	sig := n.ExtractSignature(body)
	assert.Equal(t, "hi! is the car available for pickup at 9am instead?", sig)
}

func TestExtractSignatureSameAcrossBoilerplate(t *testing.T) {
	n := New()

	bodyA := "Sarah has sent you a message about your Tesla Model 3.\n\n" +
		"Can I extend the trip by one day?\n" +
		"Reply within 24 hours. Unsubscribe: https://turo.com/u/1"
	bodyB := "Sarah has sent you a message about your Tesla Model 3.\n\n" +
		"Can I extend the trip by one day?\n" +
		"Reply soon. Sent to host-99@example.com"

	require.NotEmpty(t, n.ExtractSignature(bodyA))
	assert.Equal(t, n.ExtractSignature(bodyA), n.ExtractSignature(bodyB))
}

func TestExtractSignatureUnrecognizedTemplate(t *testing.T) {
	n := New()

	assert.Empty(t, n.ExtractSignature("Your trip receipt is attached. Thanks for hosting!"))
	assert.Empty(t, n.ExtractSignature(""))
}

func TestNormalizeCarriesReceivedAt(t *testing.T) {
	n := New()

	received := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	norm := n.Normalize(&models.InboundEmail{
		ID:         7,
		Sender:     "noreply@mail.turo.com",
		BodyText:   "x",
		ReceivedAt: received,
	})
	assert.Equal(t, int64(7), norm.EmailID)
	assert.Equal(t, received, norm.ReceivedAt)
}

package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RedRangerWentWild/IITR1/internal/models"
)

const systemPromptTemplate = `You are an email drafting assistant. Convert casual messages into professional emails.
Analyze the recipient's expected formality level and the tone of the incoming email (if replying).
Match the appropriate formality while keeping the core message.
Return a JSON object with { "subject": string, "body": string, "detectedTone": "casual"|"neutral"|"formal" }.

User Tone Profile: %s
Original Email Tone (if replying): %s

Rules:
- Keep it concise (1-3 paragraphs max)
- Match the formality of the incoming email (if replying)
- No signature block (system adds later)
- Use the user's natural voice but professionalized
- Return ONLY valid JSON`

// BuildPrompts renders the system and user prompts for a conversion
func BuildPrompts(userInput, recipientLabel string, profile models.ToneProfile, emailCtx *models.EmailContext) (system, user string) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		profileJSON = []byte("{}")
	}

	originalTone := "unknown"
	if emailCtx != nil && emailCtx.SenderTone != "" {
		originalTone = string(emailCtx.SenderTone)
	}
	system = fmt.Sprintf(systemPromptTemplate, profileJSON, originalTone)

	var b strings.Builder
	fmt.Fprintf(&b, "User's casual draft: '%s'\n", userInput)
	fmt.Fprintf(&b, "Recipient: %s\n", recipientLabel)
	if emailCtx != nil {
		fmt.Fprintf(&b, "[Context: replying to email about '%s' from %s]\n", emailCtx.Subject, emailCtx.SenderName)
	}
	b.WriteString("Convert to professional email with appropriate formality.")

	return system, b.String()
}

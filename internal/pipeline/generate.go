package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// Signature is the fixed block appended to every outgoing reply.
type Signature struct {
	Name    string
	Role    string
	Address string
}

// Render returns the signature block, including the separating blank line.
func (s Signature) Render() string {
	return fmt.Sprintf("\n\nBest regards,\n\n%s\n%s\n%s", s.Name, s.Role, s.Address)
}

// placeholderPatterns removes bracketed template artifacts and any closing
// phrases the model generated despite instructions; the fixed signature is
// appended afterwards.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[Your Name\]`),
	regexp.MustCompile(`(?i)\[User'?s Name\]`),
	regexp.MustCompile(`(?i)\[Customer'?s Name\]`),
	regexp.MustCompile(`(?i)\[Your Position\]`),
	regexp.MustCompile(`(?i)\[Your Contact Information\]`),
	regexp.MustCompile(`(?i)\[Company Name\]`),
	regexp.MustCompile(`(?is)Best regards,.*?(\n\n|$)`),
	regexp.MustCompile(`(?is)Sincerely,.*?(\n\n|$)`),
	regexp.MustCompile(`(?is)Kind regards,.*?(\n\n|$)`),
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// cleanReply strips placeholder artifacts and model-generated closings,
// collapses blank-line runs, and trims surrounding whitespace.
func cleanReply(text string) string {
	for _, p := range placeholderPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func buildGenerateSystemPrompt(sig Signature, c Classification, contextText, customerName string) string {
	return fmt.Sprintf(`You are %s, an AI Support Assistant.

Your Identity:
- Name: %s
- Role: %s
- Email: %s

Knowledge Base Context (USE THIS INFORMATION):
%s

Email Classification: %s (%s urgency)

IMPORTANT RULES:
1. Start your response with: "Dear %s,"
2. Use the Knowledge Base Context above to answer the customer's question
3. If the Knowledge Base has specific information (like refund policy, business hours, etc.), USE IT EXACTLY as provided
4. Be specific and detailed - quote policies, procedures, and timeframes from the knowledge base
5. DO NOT include any signature, "Best regards", or closing - it will be added automatically
6. DO NOT use ANY placeholders like [Your Name], [User's Name], etc.
7. DO NOT ask for more information if the knowledge base already has the answer
8. End with your last helpful sentence - no closing remarks
9. Use the EXACT customer name provided: %s

If the knowledge base doesn't have the information, then you may ask for clarification.`,
		sig.Name, sig.Name, sig.Role, sig.Address, contextText,
		c.Category, c.Urgency, customerName, customerName,
	)
}

func buildGenerateUserPrompt(msg *mail.Inbound) string {
	return fmt.Sprintf("Subject: %s\nBody: %s\n\nGenerate response using the knowledge base context:", msg.Subject, msg.Body)
}

// fallbackReply is the fixed template used when generation fails. It must
// remain dispatchable: a generation failure degrades quality, not delivery.
func fallbackReply(customerName, subject string, sig Signature) string {
	return fmt.Sprintf(`Dear %s,

Thank you for contacting us. We have received your inquiry regarding: %s

Our team is reviewing your request and will get back to you within 24 hours with a detailed response.

If this is urgent, please call us directly or reply to this email with additional details.%s`,
		customerName, subject, sig.Render())
}

// generate runs the response-generation step: one completion request using
// the retrieved context and classification, sanitized and signed. On
// provider failure the fallback template is substituted and a tagged error
// recorded; the run continues.
func (e *Engine) generate(ctx context.Context, run *Run) {
	customerName := mail.DisplayName(run.Msg.From)

	c := run.classificationOrDefault()

	contextText := "No specific context available."
	if len(run.Context) > 0 {
		contextText = strings.Join(run.Context, "\n\n")
	}

	system := buildGenerateSystemPrompt(e.opts.Signature, c, contextText, customerName)

	started := time.Now()
	answer, err := e.completer.Complete(ctx, system, buildGenerateUserPrompt(run.Msg))
	e.hooks.onLLMCall("generate", time.Since(started).Seconds(), err != nil)
	if err != nil {
		e.logger.Error(ctx, err, "response generation failed, using fallback reply",
			"message_id", run.Msg.ID)
		run.Err = stepErr(ErrGeneration, err)
		run.Draft = fallbackReply(customerName, run.Msg.Subject, e.opts.Signature)
		return
	}

	run.Draft = cleanReply(answer) + e.opts.Signature.Render()
}

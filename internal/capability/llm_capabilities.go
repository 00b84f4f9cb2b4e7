package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
	"github.com/Fib3301/HeadHunterAssistant/internal/llm"
)

const defaultTone = "professional"

// WritingCapabilities returns the capabilities answered by the language model
// rather than the job-board API.
func WritingCapabilities(client llm.Client) []Capability {
	return []Capability{
		writer{client: client, name: "analyze-resume", field: "analysis", prompt: analyzePrompt},
		writer{client: client, name: "generate-rejection-message", field: "message", prompt: rejectionPrompt},
		writer{client: client, name: "generate-invitation-message", field: "message", prompt: invitationPrompt},
	}
}

type writer struct {
	client llm.Client
	name   string
	field  string
	prompt func(resume string, args map[string]any) string
}

func (w writer) Name() string { return w.name }

func (w writer) Invoke(ctx context.Context, call Call) (Result, error) {
	resumeJSON, err := json.MarshalIndent(call.Args["resume_data"], "", "  ")
	if err != nil {
		return nil, domain.Validationf("resume_data is not serializable: %v", err)
	}

	resp, err := w.client.Chat(ctx, []llm.Message{
		{Role: domain.RoleUser, Content: w.prompt(string(resumeJSON), call.Args)},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLLMUnavailable, w.name, err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: %s: empty reply", domain.ErrLLMUnavailable, w.name)
	}

	return Result{
		w.field:     text,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func toneArg(args map[string]any) string {
	if tone, ok := stringArg(args, "message_tone"); ok {
		return tone
	}
	return defaultTone
}

func analyzePrompt(resume string, args map[string]any) string {
	criteria, _ := stringArg(args, "analysis_criteria")
	var b strings.Builder
	b.WriteString("Analyze the resume below and recommend whether to invite the candidate to an interview or reject them. ")
	b.WriteString("Give the main reasons for the decision.\n\n")
	if criteria != "" {
		fmt.Fprintf(&b, "Employer criteria: %s\n\n", criteria)
	}
	fmt.Fprintf(&b, "Resume:\n%s\n\n", resume)
	b.WriteString("Structure the answer as:\n")
	b.WriteString("1. Overall assessment\n2. Strengths\n3. Weaknesses\n4. Recommendation (invite/reject)\n5. Reasoning\n")
	b.WriteString("Answer in the language of the resume.")
	return b.String()
}

func rejectionPrompt(resume string, args map[string]any) string {
	reason, _ := stringArg(args, "rejection_reason")
	return fmt.Sprintf(`Write a polite rejection message to the candidate using the information below.

Candidate resume:
%s

Rejection reason: %s
Message tone: %s

The message must be courteous and professional, give constructive feedback, thank the candidate for their interest and wish them luck in their search.
Answer in the language of the resume.`, resume, reason, toneArg(args))
}

func invitationPrompt(resume string, args map[string]any) string {
	details, _ := stringArg(args, "interview_details")
	return fmt.Sprintf(`Write an interview invitation using the information below.

Candidate resume:
%s

Interview details: %s
Message tone: %s

The message must be professional and friendly, describe the interview details clearly, express interest in the candidate and include contact information.
Answer in the language of the resume.`, resume, details, toneArg(args))
}

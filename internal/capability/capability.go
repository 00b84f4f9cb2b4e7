package capability

import (
	"context"
	"net/url"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// Result is a structured remote result handed to the humanizer.
type Result = map[string]any

// Call carries validated arguments and the caller's credentials.
type Call struct {
	Args  map[string]any
	Creds domain.Credentials
}

// Capability is one remote action the model can select.
type Capability interface {
	Name() string
	Invoke(ctx context.Context, call Call) (Result, error)
}

// JobBoard is the subset of the job-board client the capabilities use.
type JobBoard interface {
	Me(ctx context.Context, token string) (map[string]any, error)
	ActiveVacancies(ctx context.Context, token, employerID string, query url.Values) (map[string]any, error)
	Vacancy(ctx context.Context, token, vacancyID string) (map[string]any, error)
	Negotiations(ctx context.Context, token string, query url.Values) (map[string]any, error)
	Resume(ctx context.Context, token, resumeID string, query url.Values) (map[string]any, error)
	ChangeNegotiationState(ctx context.Context, token, negotiationID, state string) (map[string]any, error)
}

package capability

import (
	"context"
	"log/slog"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// JobBoardCapabilities returns the capabilities backed by the job-board API.
func JobBoardCapabilities(board JobBoard, audit AuditSink) []Capability {
	return []Capability{
		currentUser{board: board},
		activeVacancies{board: board},
		vacancy{board: board},
		negotiations{board: board, audit: audit},
		resume{board: board},
		changeNegotiation{board: board},
	}
}

type currentUser struct{ board JobBoard }

func (currentUser) Name() string { return "get-current-user-info" }

func (c currentUser) Invoke(ctx context.Context, call Call) (Result, error) {
	return c.board.Me(ctx, call.Creds.AccessToken)
}

type activeVacancies struct{ board JobBoard }

func (activeVacancies) Name() string { return "get-active-vacancy-list" }

func (c activeVacancies) Invoke(ctx context.Context, call Call) (Result, error) {
	if !call.Creds.HasEmployer() {
		return nil, domain.Validationf("employer id is not known for this account")
	}
	return c.board.ActiveVacancies(ctx, call.Creds.AccessToken, call.Creds.EmployerID, queryFromArgs(call.Args))
}

type vacancy struct{ board JobBoard }

func (vacancy) Name() string { return "get-vacancy" }

func (c vacancy) Invoke(ctx context.Context, call Call) (Result, error) {
	id, _ := stringArg(call.Args, "vacancy_id")
	return c.board.Vacancy(ctx, call.Creds.AccessToken, id)
}

type negotiations struct {
	board JobBoard
	audit AuditSink
}

func (negotiations) Name() string { return "get-negotiations-list" }

func (c negotiations) Invoke(ctx context.Context, call Call) (Result, error) {
	out, err := c.board.Negotiations(ctx, call.Creds.AccessToken, queryFromArgs(call.Args))
	if err != nil {
		return nil, err
	}
	if c.audit != nil {
		c.audit.Record(call.Creds.ExtensionUserID, c.Name(), out)
	}
	return out, nil
}

type resume struct{ board JobBoard }

func (resume) Name() string { return "get-resume" }

// Invoke fetches one or several resumes. For a list, ids that fail are logged
// and skipped.
func (c resume) Invoke(ctx context.Context, call Call) (Result, error) {
	ids, multi := stringListArg(call.Args, "resume_id")
	query := queryFromArgs(call.Args, "resume_id")

	items := make([]any, 0, len(ids))
	for _, id := range ids {
		r, err := c.board.Resume(ctx, call.Creds.AccessToken, id, query)
		if err != nil {
			if !multi {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("Skipping resume", "resume_id", id, "error", err)
			continue
		}
		items = append(items, r)
	}

	return Result{"items": items, "found": len(items)}, nil
}

type changeNegotiation struct{ board JobBoard }

func (changeNegotiation) Name() string { return "change-negotiation-action" }

func (c changeNegotiation) Invoke(ctx context.Context, call Call) (Result, error) {
	id, _ := stringArg(call.Args, "negotiation_id")
	state, _ := stringArg(call.Args, "new_state")
	return c.board.ChangeNegotiationState(ctx, call.Creds.AccessToken, id, state)
}

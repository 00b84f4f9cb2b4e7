package hh

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

type apiErrorBody struct {
	Errors []struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	} `json:"errors"`
}

// parseAPIError turns a non-success response into a RemoteAPIError. Structured
// error entries become "parameter '<value>': <type>" joined with "; "; anything
// else falls back to the raw body.
func parseAPIError(op string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		var parts []string
		for _, e := range parsed.Errors {
			if e.Value == nil || e.Type == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("parameter '%v': %s", e.Value, e.Type))
		}
		if len(parts) > 0 {
			detail = strings.Join(parts, "; ")
		}
	}

	return &domain.RemoteAPIError{Operation: op, Status: status, Detail: detail}
}

package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// argumentsTransport rewrites tool-call arguments sent as bare JSON objects
// (GigaChat and some proxies) into the JSON-encoded strings the OpenAI wire
// format uses. Other responses pass through untouched.
type argumentsTransport struct {
	base http.RoundTripper
}

func (t *argumentsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if fixed, ok := normalizeArguments(body); ok {
		body = fixed
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return resp, nil
}

// normalizeArguments reports false when body needs no change or is not a
// completion payload.
func normalizeArguments(body []byte) ([]byte, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}
	choices, ok := payload["choices"].([]any)
	if !ok {
		return nil, false
	}

	changed := false
	for _, c := range choices {
		choice, ok := c.(map[string]any)
		if !ok {
			continue
		}
		msg, ok := choice["message"].(map[string]any)
		if !ok {
			continue
		}
		if fc, ok := msg["function_call"].(map[string]any); ok {
			changed = stringifyArguments(fc) || changed
		}
		calls, _ := msg["tool_calls"].([]any)
		for _, call := range calls {
			if tc, ok := call.(map[string]any); ok {
				if fn, ok := tc["function"].(map[string]any); ok {
					changed = stringifyArguments(fn) || changed
				}
			}
		}
	}
	if !changed {
		return nil, false
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	return out, true
}

func stringifyArguments(fn map[string]any) bool {
	args, present := fn["arguments"]
	if !present {
		return false
	}
	switch args.(type) {
	case string:
		return false
	case nil:
		fn["arguments"] = ""
		return true
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return false
	}
	fn["arguments"] = string(raw)
	return true
}

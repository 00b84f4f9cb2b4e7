package capability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// Dispatcher validates a selected capability and invokes it.
type Dispatcher struct {
	bundle *Bundle
	caps   map[string]Capability
}

// NewDispatcher wires implementations to the bundle. Every definition must
// have exactly one implementation.
func NewDispatcher(bundle *Bundle, caps ...Capability) (*Dispatcher, error) {
	d := &Dispatcher{bundle: bundle, caps: make(map[string]Capability, len(caps))}
	for _, c := range caps {
		if _, ok := bundle.Lookup(c.Name()); !ok {
			return nil, fmt.Errorf("capability %q is not described in the bundle", c.Name())
		}
		if _, dup := d.caps[c.Name()]; dup {
			return nil, fmt.Errorf("capability %q registered twice", c.Name())
		}
		d.caps[c.Name()] = c
	}
	for _, name := range bundle.Names() {
		if _, ok := d.caps[name]; !ok {
			return nil, fmt.Errorf("capability %q has no implementation", name)
		}
	}
	return d, nil
}

// Bundle returns the bundle the dispatcher serves.
func (d *Dispatcher) Bundle() *Bundle {
	return d.bundle
}

// Dispatch runs capability name with args on behalf of creds.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, creds domain.Credentials) (Result, error) {
	def, ok := d.bundle.Lookup(name)
	if !ok {
		return nil, domain.Validationf("unknown capability %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	for _, key := range def.Required() {
		if missing(args, key) {
			return nil, domain.Validationf("%s: missing required argument %q", name, key)
		}
	}

	start := time.Now()
	out, err := d.caps[name].Invoke(ctx, Call{Args: args, Creds: creds})
	if err != nil {
		slog.Warn("Capability failed",
			"capability", name,
			"extension_user_id", creds.ExtensionUserID,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	slog.Info("Capability completed",
		"capability", name,
		"extension_user_id", creds.ExtensionUserID,
		"duration", time.Since(start),
	)
	if out == nil {
		out = Result{}
	}
	return out, nil
}

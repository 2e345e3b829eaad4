package work

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Shell runs a command with arguments.
type Shell struct{}

type shellPayload struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

func (Shell) Handle(ctx context.Context, payload json.RawMessage) error {
	var p shellPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("shell payload: %w", err)
	}
	if p.Command == "" {
		return fmt.Errorf("shell payload: command is required")
	}
	out, err := exec.CommandContext(ctx, p.Command, p.Args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell: %v; out=%s", err, out)
	}
	return nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// debugPreset defines streaming rate configuration.
type debugPreset struct {
	ChunkSize int
	Delay     time.Duration
	// FailAfter aborts the stream with errDebugFlaky once this many chunks
	// were sent. Zero never fails.
	FailAfter int
}

var presets = map[string]debugPreset{
	"fast":   {ChunkSize: 50, Delay: 5 * time.Millisecond},
	"normal": {ChunkSize: 20, Delay: 20 * time.Millisecond},
	"slow":   {ChunkSize: 10, Delay: 50 * time.Millisecond},
	"burst":  {ChunkSize: 200, Delay: 100 * time.Millisecond},
	"flaky":  {ChunkSize: 10, Delay: 30 * time.Millisecond, FailAfter: 8},
}

var errDebugFlaky = errors.New("debug: simulated connection reset")

const debugReply = `## Debug reply

You said:

> %s

This turn is streamed locally by the **debug** provider so the chat view can be
exercised without network access.

` + "```go" + `
for event := range stream {
	render(event)
}
` + "```" + `

- turns so far: %d
- preset: ` + "`%s`" + `
`

// DebugProvider streams a canned markdown reply at a configurable rate.
type DebugProvider struct {
	variant string
	preset  debugPreset
}

// NewDebugProvider creates a debug provider. Unknown or empty variants use
// the "normal" preset.
func NewDebugProvider(variant string) *DebugProvider {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		variant = "normal"
	}
	preset, ok := presets[variant]
	if !ok {
		preset = presets["normal"]
	}
	return &DebugProvider{
		variant: variant,
		preset:  preset,
	}
}

func (d *DebugProvider) Name() string {
	if d.variant == "normal" {
		return "debug"
	}
	return "debug:" + d.variant
}

func (d *DebugProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		text := d.reply(req.Messages)
		sent := 0
		for len(text) > 0 {
			end := min(d.preset.ChunkSize, len(text))
			chunk := text[:end]
			text = text[end:]

			if !send(ctx, ch, Event{Type: EventTextDelta, Text: chunk}) {
				return ctx.Err()
			}
			sent++
			if d.preset.FailAfter > 0 && sent >= d.preset.FailAfter {
				return errDebugFlaky
			}

			if d.preset.Delay > 0 && len(text) > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d.preset.Delay):
				}
			}
		}
		send(ctx, ch, Event{Type: EventDone})
		return nil
	}), nil
}

func (d *DebugProvider) ListModels(ctx context.Context) ([]string, error) {
	return DebugPresetNames(), nil
}

func (d *DebugProvider) reply(messages []Message) string {
	last := ""
	turns := 0
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		turns++
		if msg.Role == RoleUser {
			last = msg.Content
		}
	}
	quoted := strings.ReplaceAll(strings.TrimSpace(last), "\n", "\n> ")
	return fmt.Sprintf(debugReply, quoted, turns, d.variant)
}

// DebugPresetNames lists the known debug variants in a stable order.
func DebugPresetNames() []string {
	return []string{"fast", "normal", "slow", "burst", "flaky"}
}

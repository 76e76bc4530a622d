package ai

import (
	"context"
	"errors"
)

// Prompter adapts a Runtime to single-prompt completion. The prompt is sent
// as one user message; the first choice is returned.
type Prompter struct {
	Runtime     Runtime
	Model       string
	Temperature float64
}

func NewPrompter(rt Runtime, model string) *Prompter {
	return &Prompter{Runtime: rt, Model: model}
}

func (p *Prompter) Complete(ctx context.Context, prompt string) (string, error) {
	if p == nil || p.Runtime == nil {
		return "", errors.New("no runtime configured")
	}
	resp, err := p.Runtime.Generate(ctx, GenerateRequest{
		Model:       p.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: p.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

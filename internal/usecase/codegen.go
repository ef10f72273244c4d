package usecase

import (
	"context"
	"fmt"

	"event-ticketing/pkg/utils"
)

const (
	TicketCodeLength = 6
	EventCodeLength  = 8
)

// ExistsFunc reports whether code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator draws random codes from utils.CodeAlphabet until one is
// free, giving up after MaxAttempts draws.
type CodeGenerator struct {
	Length      int
	MaxAttempts int
	random      func(alphabet string, length int) (string, error)
}

func NewCodeGenerator(length, maxAttempts int) *CodeGenerator {
	if maxAttempts < 1 {
		maxAttempts = 20
	}
	return &CodeGenerator{
		Length:      length,
		MaxAttempts: maxAttempts,
		random:      utils.RandomString,
	}
}

func (g *CodeGenerator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.random(utils.CodeAlphabet, g.Length)
		if err != nil {
			return "", fmt.Errorf("draw code: %w", err)
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted.With("attempts", g.MaxAttempts)
}

// GenerateBatch returns n distinct codes that are free in storage and
// unique within the batch.
func (g *CodeGenerator) GenerateBatch(ctx context.Context, n int, exists ExistsFunc) ([]string, error) {
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)

	check := func(ctx context.Context, code string) (bool, error) {
		if _, dup := seen[code]; dup {
			return true, nil
		}
		return exists(ctx, code)
	}

	for len(codes) < n {
		code, err := g.Generate(ctx, check)
		if err != nil {
			return nil, err
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

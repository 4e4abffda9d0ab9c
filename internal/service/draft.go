package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MereWhiplash/aria/internal/llm"
	"github.com/MereWhiplash/aria/internal/storage"
	"github.com/MereWhiplash/aria/internal/types"
)

// draftMatchCount is how many guideline excerpts a draft is grounded on
const draftMatchCount = 3

// DraftParams is a narrative drafting request
type DraftParams struct {
	Section          string
	Context          map[string]string
	UseKnowledgeBase bool
	Category         string
}

// DraftResult is a drafted report section
type DraftResult struct {
	Section string               `json:"section"`
	Text    string               `json:"text"`
	Sources []storage.ChunkMatch `json:"sources"`
}

// Draft writes one report section from clinician context, optionally grounded
// on knowledge-base excerpts.
func (s *Service) Draft(ctx context.Context, p DraftParams) (*DraftResult, error) {
	section, ok := llm.LookupSection(p.Section)
	if !ok {
		return nil, types.Validation("section", "unknown section "+p.Section)
	}
	if len(p.Context) == 0 {
		return nil, types.Validation("context", "is required")
	}

	var sources []storage.ChunkMatch
	if p.UseKnowledgeBase {
		res, err := s.Query(ctx, QueryParams{
			Query:      retrievalQuery(section, p.Context),
			Category:   p.Category,
			MatchCount: draftMatchCount,
		})
		if err != nil {
			return nil, err
		}
		sources = res.Results
	}

	prompt := llm.BuildPrompt("Write the "+section.Title+" section.", p.Context, sources)
	text, err := s.completer.Complete(ctx, llm.Request{
		System:      section.System,
		Prompt:      prompt,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, s.upstream("draft", err)
	}

	return &DraftResult{
		Section: section.ID,
		Text:    strings.TrimSpace(text),
		Sources: sources,
	}, nil
}

func retrievalQuery(section llm.Section, ctx map[string]string) string {
	parts := []string{section.Title}
	for _, k := range []string{"diagnosis", "insurance", "behaviors", "summary"} {
		if v := strings.TrimSpace(ctx[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// GoalParams is a treatment-goal suggestion request
type GoalParams struct {
	ClientSummary string
	Domain        string
	Count         int
}

// Goal is a suggested treatment goal
type Goal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Baseline    string `json:"baseline,omitempty"`
	Criteria    string `json:"criteria,omitempty"`
	TargetDate  string `json:"targetDate"`
}

// Goal suggestion bounds
const (
	DefaultGoalCount = 3
	MaxGoalCount     = 10
)

// SuggestGoals asks the model for measurable goals as JSON. Goals without a
// valid targetDate get one six months out.
func (s *Service) SuggestGoals(ctx context.Context, p GoalParams) ([]Goal, error) {
	if strings.TrimSpace(p.ClientSummary) == "" {
		return nil, types.Validation("clientSummary", "is required")
	}
	if p.Count <= 0 {
		p.Count = DefaultGoalCount
	}
	if p.Count > MaxGoalCount {
		p.Count = MaxGoalCount
	}

	goalCtx := map[string]string{"summary": p.ClientSummary}
	if p.Domain != "" {
		goalCtx["domain"] = p.Domain
	}
	instruction := "Suggest " + strconv.Itoa(p.Count) + " treatment goals for this client."

	raw, err := s.completer.Complete(ctx, llm.Request{
		System:      llm.GoalsSystem,
		Prompt:      llm.BuildPrompt(instruction, goalCtx, nil),
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, s.upstream("goals", err)
	}

	var out struct {
		Goals []Goal `json:"goals"`
	}
	if err := llm.ExtractJSON(raw, &out); err != nil {
		var perr *types.ParseError
		if errors.As(err, &perr) {
			s.logger.Error("unparseable goals response", "raw_prefix", perr.RawPrefix())
		}
		return nil, err
	}

	fallback := s.now().AddDate(0, 6, 0).Format(time.DateOnly)
	goals := out.Goals[:0]
	for _, g := range out.Goals {
		if strings.TrimSpace(g.Title) == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, g.TargetDate); err != nil {
			g.TargetDate = fallback
		}
		goals = append(goals, g)
	}
	if len(goals) > p.Count {
		goals = goals[:p.Count]
	}

	return goals, nil
}

func (s *Service) upstream(op string, err error) error {
	s.logger.Error("llm call failed", "op", op, "error", err)
	return &types.UpstreamError{Provider: "llm", Op: op, Err: err}
}

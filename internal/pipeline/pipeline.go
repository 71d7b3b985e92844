// Package pipeline sequences the natural-language query flow: SQL
// generation, safety validation, execution with a single repair retry, and
// response synthesis.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/observability"
)

type sqlGenerator interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
}

type queryRunner interface {
	Execute(ctx context.Context, sqlText string) (ResultSet, error)
}

type explainer interface {
	Synthesize(ctx context.Context, question string, result ResultSet) (string, error)
	SynthesizeStream(ctx context.Context, question string, result ResultSet) (<-chan llm.Fragment, error)
}

// Answer is the terminal outcome of one full pipeline run.
type Answer struct {
	Question    string
	SQL         string
	Result      ResultSet
	Explanation string
}

// StreamedAnswer carries the synchronously computed SQL and rows plus the
// lazy explanation sequence. Rows are never streamed.
type StreamedAnswer struct {
	Question  string
	SQL       string
	Result    ResultSet
	Fragments <-chan llm.Fragment
}

type Pipeline struct {
	Generator   sqlGenerator
	Executor    queryRunner
	Synthesizer explainer
	Logger      *slog.Logger
}

func New(generator *Generator, executor *Executor, synthesizer *Synthesizer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Generator:   generator,
		Executor:    executor,
		Synthesizer: synthesizer,
		Logger:      logger,
	}
}

// Answer runs the full pipeline. Any stage failure aborts the remaining
// stages; partial results are never returned.
func (p *Pipeline) Answer(ctx context.Context, question string) (Answer, error) {
	sqlText, result, err := p.prepare(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	start := time.Now()
	explanation, err := p.Synthesizer.Synthesize(ctx, question, result)
	observability.ObserveLLMRequest("synthesis", err)
	observability.ObservePipelineStage("synthesize", time.Since(start))
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Question:    question,
		SQL:         sqlText,
		Result:      result,
		Explanation: explanation,
	}, nil
}

// AnswerStream completes generation and execution synchronously, then opens
// the streaming synthesis call.
func (p *Pipeline) AnswerStream(ctx context.Context, question string) (StreamedAnswer, error) {
	sqlText, result, err := p.prepare(ctx, question)
	if err != nil {
		return StreamedAnswer{}, err
	}

	fragments, err := p.Synthesizer.SynthesizeStream(ctx, question, result)
	observability.ObserveLLMRequest("synthesis", err)
	if err != nil {
		return StreamedAnswer{}, err
	}

	return StreamedAnswer{
		Question:  question,
		SQL:       sqlText,
		Result:    result,
		Fragments: fragments,
	}, nil
}

// RunSQL is the lighter entry point for caller-supplied SQL: validate then
// execute, no synthesis.
func (p *Pipeline) RunSQL(ctx context.Context, sqlText string) (ResultSet, error) {
	if err := Validate(sqlText); err != nil {
		return ResultSet{}, err
	}

	start := time.Now()
	result, err := p.Executor.Execute(ctx, sqlText)
	observability.ObservePipelineStage("execute", time.Since(start))
	return result, err
}

func (p *Pipeline) prepare(ctx context.Context, question string) (string, ResultSet, error) {
	start := time.Now()
	sqlText, err := p.Generator.GenerateSQL(ctx, question)
	observability.ObserveLLMRequest("generation", err)
	observability.ObservePipelineStage("generate", time.Since(start))
	if err != nil {
		return "", ResultSet{}, err
	}

	if p.Logger != nil {
		p.Logger.DebugContext(ctx, "generated sql", slog.String("sql", sqlText))
	}

	if err := Validate(sqlText); err != nil {
		return "", ResultSet{}, err
	}

	start = time.Now()
	result, err := p.Executor.Execute(ctx, sqlText)
	observability.ObservePipelineStage("execute", time.Since(start))
	if err != nil {
		return "", ResultSet{}, err
	}
	return sqlText, result, nil
}

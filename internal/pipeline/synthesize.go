package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
)

// percentageNote explains the increase formula. Included only when the
// canonical percentage column is present in the result.
const percentageNote = "The percentage increase is calculated as: ((2020 revenue - 2019 revenue) / 2019 revenue) * 100"

const synthesizeInstructions = `Instructions:
- Focus on the key insights and trends
- Use natural language
- Be concise but informative
- Highlight any notable patterns or anomalies
- For percentage calculations, explain the meaning of the percentage`

// Synthesizer turns query results into explanatory text, in whole or as an
// incremental fragment sequence.
type Synthesizer struct {
	Client llm.Client
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, result ResultSet) (string, error) {
	text, err := s.Client.Generate(ctx, buildSynthesizePrompt(question, result))
	if err != nil {
		return "", &UpstreamError{Stage: "synthesis", Err: err}
	}
	return text, nil
}

// SynthesizeStream opens the incremental model call. The fragment sequence
// is lazy, finite and not restartable; it ends when the upstream completes
// or ctx is cancelled. No end-of-stream sentinel is emitted.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, question string, result ResultSet) (<-chan llm.Fragment, error) {
	fragments, err := s.Client.Stream(ctx, buildSynthesizePrompt(question, result))
	if err != nil {
		return nil, &UpstreamError{Stage: "synthesis", Err: err}
	}
	return fragments, nil
}

func buildSynthesizePrompt(question string, result ResultSet) string {
	note := ""
	if hasColumn(result, percentageColumn) {
		note = percentageNote + "\n\n"
	}

	return fmt.Sprintf(`Based on the following data, provide a clear and concise analysis that answers this question:
%q

%sData:
%s

%s`, question, note, renderRows(result), synthesizeInstructions)
}

func hasColumn(result ResultSet, column string) bool {
	for _, name := range result.Columns {
		if name == column {
			return true
		}
	}
	return false
}

// renderRows produces a plain-text table for the synthesis prompt.
func renderRows(result ResultSet) string {
	if len(result.Rows) == 0 {
		return "(no rows)"
	}

	var builder strings.Builder
	builder.WriteString(strings.Join(result.Columns, " | "))
	for _, row := range result.Rows {
		builder.WriteString("\n")
		cells := make([]string, 0, len(result.Columns))
		for _, column := range result.Columns {
			value := row[column]
			if value == nil {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, fmt.Sprintf("%v", value))
		}
		builder.WriteString(strings.Join(cells, " | "))
	}
	return builder.String()
}

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/askdb/askdb/internal/llm"
)

// SchemaSource supplies the rendered schema of every known table.
type SchemaSource interface {
	AllSchemas(ctx context.Context) (map[string]string, error)
}

// Generator builds the SQL-generation prompt and runs one model call.
// The model call is never retried; output is cleaned but not validated here.
type Generator struct {
	Schemas SchemaSource
	Client  llm.Client
}

const generateInstructions = `INSTRUCTIONS:
- Choose the most appropriate table(s) to answer the question.
- Do NOT make up column names.
- Use STANDARD SQL.
- Do NOT include comments or semicolons.
- Return ONLY the SQL.
- If you need to join tables, make sure to use the correct join conditions.
- For date operations, use CAST or TO_DATE instead of make_date.
- For numeric values, ensure proper type casting using CAST(value AS type).
- Use proper date formatting: 'YYYY-MM-DD' for dates.
- Use proper numeric formatting: CAST(value AS NUMERIC) for decimal numbers.
- Use proper integer formatting: CAST(value AS INTEGER) for whole numbers.`

func (g *Generator) GenerateSQL(ctx context.Context, question string) (string, error) {
	schemas, err := g.Schemas.AllSchemas(ctx)
	if err != nil {
		return "", err
	}

	raw, err := g.Client.Generate(ctx, buildGeneratePrompt(question, schemas))
	if err != nil {
		return "", &UpstreamError{Stage: "generation", Err: err}
	}
	return cleanSQL(raw), nil
}

func buildGeneratePrompt(question string, schemas map[string]string) string {
	tables := make([]string, 0, len(schemas))
	for table := range schemas {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	sections := make([]string, 0, len(tables))
	for _, table := range tables {
		sections = append(sections, fmt.Sprintf("Table: %s\n%s", table, schemas[table]))
	}

	return fmt.Sprintf(`You are an expert at writing SQL queries for PostgreSQL.

Write a PostgreSQL SQL query to answer the question:
%q

Available tables and their schemas:
%s

%s`, question, strings.Join(sections, "\n\n"), generateInstructions)
}

// cleanSQL strips markdown fences and one trailing statement terminator.
// Only cleaned text is ever offered for execution.
func cleanSQL(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```sql", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, ";")
	return strings.TrimSpace(cleaned)
}

package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRejectsDeniedKeywords(t *testing.T) {
	cases := []string{
		"SELECT * FROM t; DROP TABLE t",
		"SELECT * FROM t WHERE id IN (DELETE FROM u)",
		"UPDATE t SET x=1",
		"select 1; alter table t add column c int",
		"SELECT * FROM t; truncate t",
		"SELECT * FROM t; insert into t values (1)",
		"SELECT updated_at FROM t",
	}
	for _, sqlText := range cases {
		err := Validate(sqlText)
		if err == nil {
			t.Fatalf("Validate(%q) should reject", sqlText)
		}
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("Validate(%q) error type = %T", sqlText, err)
		}
	}
}

func TestValidateRequiresSelectPrefix(t *testing.T) {
	if err := Validate("  select 1"); err != nil {
		t.Fatalf("Validate should accept lowercase select, got %v", err)
	}
	if err := Validate("WITH x AS (SELECT 1) SELECT * FROM x"); err == nil {
		t.Fatal("Validate should reject queries not beginning with SELECT")
	}
	if err := Validate("EXPLAIN SELECT 1"); err == nil {
		t.Fatal("Validate should reject EXPLAIN prefix")
	}
}

func TestValidateRejectsComments(t *testing.T) {
	for _, sqlText := range []string{
		"SELECT 1 -- comment",
		"SELECT /* hidden */ 1",
		"SELECT 1 */",
	} {
		if err := Validate(sqlText); err == nil {
			t.Fatalf("Validate(%q) should reject comment markers", sqlText)
		}
	}
}

func TestValidateAcceptsPlainSelect(t *testing.T) {
	if err := Validate("SELECT year, revenue FROM revenue WHERE year = 2020"); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateReasonIsHumanReadable(t *testing.T) {
	err := Validate("DROP TABLE t")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "DROP") {
		t.Fatalf("reason should name the keyword, got %q", err.Error())
	}
}

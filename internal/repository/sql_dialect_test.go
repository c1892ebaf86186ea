package repository

import (
	"strings"
	"testing"
)

func TestJSONArrayContainsSQLite(t *testing.T) {
	cond, arg := jsonArrayContainsByDialect("sqlite", "tags", "food")
	if cond != "EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?)" {
		t.Fatalf("sqlite condition mismatch: %s", cond)
	}
	if arg != "food" {
		t.Fatalf("sqlite arg mismatch: %v", arg)
	}
}

func TestJSONArrayContainsPostgres(t *testing.T) {
	cond, arg := jsonArrayContainsByDialect("postgres", "tags", "food")
	if cond != "(tags)::jsonb @> ?::jsonb" {
		t.Fatalf("postgres condition mismatch: %s", cond)
	}
	if arg != `["food"]` {
		t.Fatalf("postgres arg mismatch: %v", arg)
	}
}

func TestBuildLikeCondition(t *testing.T) {
	condition, argCount := buildLikeConditionByDialect("sqlite", []string{"title", " ", "description"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if condition != "title LIKE ? OR description LIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	pg, _ := buildLikeConditionByDialect("postgres", []string{"title"})
	if !strings.Contains(pg, "ILIKE") {
		t.Fatalf("postgres should use ILIKE, got %s", pg)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}

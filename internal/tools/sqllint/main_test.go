package main

import (
	"strings"
	"testing"
)

func TestLintSource(t *testing.T) {
	src := "package q\n\n" +
		"const QGood = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n\n" +
		"const QMissing = `select id from narrations;`\n\n" +
		"const QDup = `--sql 11111111-2222-4333-8444-555555555555\nupdate narrations set status = 'done';`\n\n" +
		"const QCreate = `create table t (id int);`\n\n" +
		"const notSQL = \"selected voice\"\n"

	vs, err := lintSource("q.go", []byte(src), map[string]string{})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	got := map[string]string{}
	for _, v := range vs {
		got[v.name] = v.message
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 violations, got %v", vs)
	}
	if !strings.Contains(got["QMissing"], "missing") || !strings.Contains(got["QCreate"], "missing") {
		t.Fatalf("unexpected violations %v", got)
	}
	if !strings.Contains(got["QDup"], "QGood") {
		t.Fatalf("expected duplicate marker report, got %q", got["QDup"])
	}
}

func TestSQLInlineIsClean(t *testing.T) {
	vs, err := lintTargets([]string{"../../sqlinline"})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("unexpected violations: %v", vs)
	}
}

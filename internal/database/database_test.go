package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestNormalizeDSN(t *testing.T) {
	got, err := NormalizeDSN("oai@tcp(db:3306)/oai", "pw")
	if err != nil {
		t.Fatalf("NormalizeDSN: %v", err)
	}
	cfg, err := mysql.ParseDSN(got)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if cfg.Passwd != "pw" || !cfg.ParseTime || !cfg.MultiStatements || !cfg.ClientFoundRows || cfg.Loc.String() != "UTC" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("parseTime missing from %q", got)
	}
}

func TestNormalizeDSN_KeepsInlinePassword(t *testing.T) {
	got, err := NormalizeDSN("oai:inline@tcp(db:3306)/oai", "")
	if err != nil {
		t.Fatalf("NormalizeDSN: %v", err)
	}
	cfg, _ := mysql.ParseDSN(got)
	if cfg.Passwd != "inline" {
		t.Fatalf("password = %q, want inline", cfg.Passwd)
	}
}

func TestIsDuplicate(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !IsDuplicate(dup) {
		t.Fatal("expected 1062 to be a duplicate")
	}
	if IsDuplicate(&mysql.MySQLError{Number: 1146}) {
		t.Fatal("1146 is not a duplicate")
	}
	if IsDuplicate(errors.New("boom")) {
		t.Fatal("plain error is not a duplicate")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/DATA-DOG/go-sqlmock"
)

func TestSeedPlans_InsertsDefaultLimits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	for _, s := range seeds {
		limits, _ := json.Marshal(quota.DefaultPlans()[s.id])
		mock.ExpectExec(`INSERT INTO public\.billing_plans .* ON CONFLICT \(id\) DO NOTHING`).
			WithArgs(s.id, s.name, s.desc, s.price, string(limits)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	if err := seedPlans(db, false, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("seedPlans: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeedPlans_UpdateOverwritesLimits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DO UPDATE SET limits = EXCLUDED\.limits`).WillReturnError(io.ErrUnexpectedEOF)
	if err := seedPlans(db, true, log.New(io.Discard, "", 0)); err == nil || !strings.Contains(err.Error(), "upsert free plan") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestListPlans(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, price_cents, limits FROM public\.billing_plans`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price_cents", "limits"}).
			AddRow("free", "Free", 0, []byte(`{"maxProjects":5,"analytics":false}`)).
			AddRow("pro", "Pro", 900, []byte(`{"maxProjects":-1}`)))

	var buf bytes.Buffer
	if err := listPlans(db, &buf); err != nil {
		t.Fatalf("listPlans: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "- free: Free ($0.00/month) analytics=false maxProjects=5") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "- pro: Pro ($9.00/month) maxProjects=-1") {
		t.Fatalf("unexpected output %q", out)
	}
}

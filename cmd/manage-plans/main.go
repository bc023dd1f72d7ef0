// Command manage-plans seeds public.billing_plans from the built-in plan
// table and prints what is stored.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/Aziraphal/smartportfolio/internal/quota"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type planSeed struct {
	id, name, desc string
	price          int
}

// Prices and copy for the built-in plans. Limits come from quota.DefaultPlans.
var seeds = []planSeed{
	{id: quota.PlanFree, name: "Free", desc: "A single portfolio with a handful of imported projects", price: 0},
	{id: quota.PlanPro, name: "Pro", desc: "Unlimited projects and integrations, AI-written descriptions", price: 900},
	{id: quota.PlanTeam, name: "Team", desc: "Several portfolios with a larger AI budget", price: 2900},
}

func main() {
	_ = godotenv.Load()
	update := flag.Bool("update", false, "Overwrite limits of existing plans")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := seedPlans(db, *update, log.Default()); err != nil {
		log.Fatal(err)
	}
	if err := listPlans(db, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func seedPlans(db *sql.DB, update bool, logger *log.Logger) error {
	conflict := "DO NOTHING"
	if update {
		conflict = "DO UPDATE SET limits = EXCLUDED.limits, price_cents = EXCLUDED.price_cents, is_active = TRUE"
	}
	plans := quota.DefaultPlans()
	for _, s := range seeds {
		limits, err := json.Marshal(plans[s.id])
		if err != nil {
			return fmt.Errorf("encode %s limits: %w", s.id, err)
		}
		res, err := db.Exec(`
			INSERT INTO public.billing_plans (id, name, description, price_cents, currency, interval, limits)
			VALUES ($1, $2, $3, $4, 'usd', 'month', $5::jsonb)
			ON CONFLICT (id) `+conflict, s.id, s.name, s.desc, s.price, string(limits))
		if err != nil {
			return fmt.Errorf("upsert %s plan: %w", s.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			logger.Printf("[Plans] seeded plan=%s", s.id)
		} else {
			logger.Printf("[Plans] kept existing plan=%s", s.id)
		}
	}
	return nil
}

func listPlans(db *sql.DB, w io.Writer) error {
	rows, err := db.Query("SELECT id, name, price_cents, limits FROM public.billing_plans ORDER BY price_cents, id")
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	fmt.Fprintln(w, "Current plans:")
	for rows.Next() {
		var id, name string
		var price int
		var raw []byte
		if err := rows.Scan(&id, &name, &price, &raw); err != nil {
			return fmt.Errorf("scan plan: %w", err)
		}
		var limits map[string]any
		_ = json.Unmarshal(raw, &limits)
		keys := make([]string, 0, len(limits))
		for k := range limits {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "- %s: %s ($%d.%02d/month)", id, name, price/100, price%100)
		for _, k := range keys {
			fmt.Fprintf(w, " %s=%v", k, limits[k])
		}
		fmt.Fprintln(w)
	}
	return rows.Err()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ralphbruens/Scoreboard/go/internal/dbconfig"
	"github.com/Ralphbruens/Scoreboard/go/internal/round"
)

// seed_results imports the session results of an export file into the results
// history of a room:
//
//	go run ./go/internal/tools/seed_results ABC123 scoreboard-results-2026-03-14.json
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: seed_results ROOM_CODE EXPORT_FILE")
		os.Exit(2)
	}
	room := strings.ToUpper(strings.TrimSpace(os.Args[1]))

	// 1) Load the export document
	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var doc round.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var (
		total    = len(doc.SessionResults)
		inserted int
		skipped  int
		errs     int
	)

	for _, r := range doc.SessionResults {
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO results (
              id, room_code, round_id, player_id, player_name, field_number, checkin_time,
              bonus_score, bruto_score, netto_score, policy, auto_stopped, finished_at
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
            )
            ON CONFLICT (id) DO NOTHING
        `,
			r.ID, room, r.RoundID, r.PlayerID, r.Name, r.FieldNumber, r.CheckedInAt,
			r.BonusScore, r.BrutoScore, r.NettoScore, r.Policy, r.AutoStopped, r.FinishedAt,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting result %s: %v\n", r.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf(
		"Done: %d total, %d inserted, %d skipped, %d errors (room %s)\n",
		total, inserted, skipped, errs, room,
	)
	if errs > 0 {
		os.Exit(1)
	}
}

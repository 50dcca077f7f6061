package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rawgrid/crocomine-agent/internal/agent"
	"github.com/rawgrid/crocomine-agent/internal/client"
	"github.com/rawgrid/crocomine-agent/internal/db"
	"github.com/rawgrid/crocomine-agent/pkg/models"
)

func main() {
	log.Println("Starting Crocomine agent...")

	server := getEnvOrDefault("CROCOMINE_SERVER", "http://localhost:8000")
	group := getEnvOrDefault("CROCOMINE_GROUP", "rawgrid")
	members := getEnvOrDefault("CROCOMINE_MEMBERS", "agent")
	seed := int64(1)
	if raw := os.Getenv("CROCOMINE_SEED"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Fatalf("FATAL: CROCOMINE_SEED %q is not an integer: %v", raw, err)
		}
		seed = parsed
	}

	// The statistics store is optional: without DATABASE_URL the agent just
	// prints its record at the end.
	var store *db.PostgresStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		conn, err := db.Connect(dbURL)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without persisting results. Error: %v", err)
		} else {
			store = conn
			defer store.Close()
			if err := store.InitSchema(); err != nil {
				log.Printf("Warning: DB schema init failed: %v", err)
			}
		}
	}

	cli := client.New(client.Config{Server: server, Group: group, Members: members})

	var (
		wins, losses int
		totalMoves   int
		totalTime    time.Duration
		failed       []string
	)

	for {
		status, msg, grid, err := cli.NewGrid()
		if err != nil {
			log.Fatalf("FATAL: new_grid failed: %v", err)
		}
		if status == models.StatusErr {
			log.Printf("Server has no more grids: %s", msg)
			break
		}

		result, moves, elapsed := playGrid(cli, grid, seed)
		totalMoves += moves
		totalTime += elapsed
		switch result {
		case models.StatusGG:
			wins++
			log.Printf("GG on %q: %d moves in %s", grid.Name, moves, elapsed)
		case models.StatusKO:
			losses++
			failed = append(failed, grid.Name)
			log.Printf("KO on %q: %d moves in %s", grid.Name, moves, elapsed)
		default:
			log.Printf("Grid %q ended with %s after %d moves", grid.Name, result, moves)
		}

		if store != nil {
			err := store.SaveGameResult(context.Background(), models.GameResult{
				GridName:   grid.Name,
				Status:     result,
				Moves:      moves,
				DurationMS: float64(elapsed.Milliseconds()),
			})
			if err != nil {
				log.Printf("Warning: failed to persist result for %q: %v", grid.Name, err)
			}
		}
		if result == models.StatusErr {
			break
		}
	}

	log.Printf("Session over: %d wins, %d losses, %d moves, %s total", wins, losses, totalMoves, totalTime)
	if len(failed) > 0 {
		log.Printf("Lost grids: %v", failed)
	}
	if store != nil {
		if stats, err := store.LoadStats(context.Background()); err == nil {
			log.Printf("All-time record: %d wins / %d losses over %d moves", stats.Wins, stats.Losses, stats.TotalMoves)
		}
	}
}

// playGrid runs one grid to completion: opening discover at the announced
// start, then the observe/decide loop until the server settles the game.
func playGrid(cli *client.Client, grid models.GridInfo, seed int64) (models.Status, int, time.Duration) {
	start := time.Now()

	eng, err := agent.NewGame(grid.M, grid.N, grid.TigerCount, grid.SharkCount, grid.CrocoCount,
		grid.LandCount, grid.SeaCount, seed)
	if err != nil {
		log.Printf("Cannot set up grid %q: %v", grid.Name, err)
		return models.StatusErr, 0, time.Since(start)
	}

	status, msg, infos, err := cli.Discover(grid.Start[0], grid.Start[1])
	if err != nil {
		log.Printf("Opening discover failed: %v", err)
		return models.StatusErr, 0, time.Since(start)
	}

	moves := 1
	for status == models.StatusOK {
		for _, obs := range infos {
			if err := eng.AddObservation(obs); err != nil {
				log.Printf("Abandoning grid %q: %v", grid.Name, err)
				return models.StatusErr, moves, time.Since(start)
			}
		}

		decision, err := eng.Decide()
		if err != nil {
			log.Printf("Abandoning grid %q: %v", grid.Name, err)
			return models.StatusErr, moves, time.Since(start)
		}

		switch decision.Action {
		case agent.ActionGuess:
			status, msg, infos, err = cli.Guess(decision.Row, decision.Col, decision.Species)
		case agent.ActionDiscover:
			status, msg, infos, err = cli.Discover(decision.Row, decision.Col)
		case agent.ActionChord:
			status, msg, infos, err = cli.Chord(decision.Row, decision.Col)
		default:
			// Nothing left to play; the server's verdict must already be in.
			log.Printf("No move left on %q (%s)", grid.Name, msg)
			return models.StatusErr, moves, time.Since(start)
		}
		if err != nil {
			log.Printf("Move failed on %q: %v", grid.Name, err)
			return models.StatusErr, moves, time.Since(start)
		}
		moves++
	}

	return status, moves, time.Since(start)
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

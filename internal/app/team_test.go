package app

import (
	"context"
	"testing"

	"github.com/SamuelNikhil/QuizWall-game/internal/infra/memory"
)

func TestTeamScoreAccumulatesAndResets(t *testing.T) {
	tm := NewTeamManager(memory.NewTeamStore())
	if total := tm.AddScore(100); total != 100 {
		t.Fatalf("expected 100, got %d", total)
	}
	if total := tm.AddScore(100); total != 200 {
		t.Fatalf("expected 200, got %d", total)
	}
	tm.ResetScore()
	if tm.Score() != 0 {
		t.Fatalf("expected 0 after reset, got %d", tm.Score())
	}
}

func TestSetNameCreatesTeamImmediately(t *testing.T) {
	store := memory.NewTeamStore()
	tm := NewTeamManager(store)
	ctx := context.Background()

	if err := tm.SetName(ctx, "  Night Owls  "); err != nil {
		t.Fatalf("set name: %v", err)
	}
	if tm.Name() != "Night Owls" {
		t.Fatalf("expected trimmed name, got %q", tm.Name())
	}
	entries, err := store.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].TeamName != "Night Owls" || entries[0].BestScore != 0 {
		t.Fatalf("expected team on the board with score 0, got %v", entries)
	}
}

func TestSaveGameResultKeepsHighWaterMark(t *testing.T) {
	store := memory.NewTeamStore()
	tm := NewTeamManager(store)
	ctx := context.Background()
	if err := tm.SetName(ctx, "Night Owls"); err != nil {
		t.Fatalf("set name: %v", err)
	}

	save := func(score, answered int) {
		t.Helper()
		tm.ResetScore()
		if score > 0 {
			tm.AddScore(score)
		}
		if err := tm.SaveGameResult(ctx, "ROOM", answered); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	best := func() int {
		t.Helper()
		entries, err := store.Leaderboard(ctx, 1)
		if err != nil || len(entries) == 0 {
			t.Fatalf("leaderboard: %v %v", entries, err)
		}
		return entries[0].BestScore
	}

	save(500, 5)
	if got := best(); got != 500 {
		t.Fatalf("expected best 500, got %d", got)
	}
	save(300, 3)
	if got := best(); got != 500 {
		t.Fatalf("lower score must not replace the best, got %d", got)
	}
	save(700, 7)
	if got := best(); got != 700 {
		t.Fatalf("higher score must replace the best, got %d", got)
	}

	records := store.Records()
	if len(records) != 3 {
		t.Fatalf("every game must append a record, got %d", len(records))
	}
	entries, _ := store.Leaderboard(ctx, 1)
	if entries[0].GamesPlayed != 3 {
		t.Fatalf("expected 3 games played, got %d", entries[0].GamesPlayed)
	}
}

func TestSaveGameResultWithoutNameIsNoop(t *testing.T) {
	store := memory.NewTeamStore()
	tm := NewTeamManager(store)
	tm.AddScore(400)

	if err := tm.SaveGameResult(context.Background(), "ROOM", 4); err != nil {
		t.Fatalf("save without a name must be a silent no-op, got %v", err)
	}
	if got := store.Records(); len(got) != 0 {
		t.Fatalf("nothing should be persisted, got %v", got)
	}
}

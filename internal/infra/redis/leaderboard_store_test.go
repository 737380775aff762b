package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLeaderboardStoreAccumulatesScores(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewLeaderboardStore(newClient(mr))
	ctx := context.Background()

	if err := store.AddScores(ctx, map[int64]float64{101: 2.5, 102: 1}); err != nil {
		t.Fatalf("add scores: %v", err)
	}
	if err := store.AddScores(ctx, map[int64]float64{102: 0.75}); err != nil {
		t.Fatalf("add scores: %v", err)
	}

	board, err := store.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].UserID != 101 || board.Entries[0].Score != 2.5 {
		t.Errorf("unexpected first entry: %+v", board.Entries[0])
	}
	if board.Entries[1].UserID != 102 || board.Entries[1].Score != 1.75 {
		t.Errorf("unexpected second entry: %+v", board.Entries[1])
	}
}

func TestLeaderboardStoreTopLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewLeaderboardStore(newClient(mr))
	ctx := context.Background()

	if err := store.AddScores(ctx, map[int64]float64{1: 3, 2: 2, 3: 1}); err != nil {
		t.Fatalf("add scores: %v", err)
	}

	board, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].UserID != 1 {
		t.Errorf("expected user 1 first, got %d", board.Entries[0].UserID)
	}
}

func TestLeaderboardStoreTiesOrderByUserID(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewLeaderboardStore(newClient(mr))
	ctx := context.Background()

	if err := store.AddScores(ctx, map[int64]float64{20: 1, 3: 1, 100: 1}); err != nil {
		t.Fatalf("add scores: %v", err)
	}

	board, err := store.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []int64{3, 20, 100}
	for i, id := range want {
		if board.Entries[i].UserID != id {
			t.Errorf("position %d: expected user %d, got %d", i, id, board.Entries[i].UserID)
		}
	}
}

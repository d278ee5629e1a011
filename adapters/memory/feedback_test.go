package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

func seedFeedback(t *testing.T, repo *FeedbackRepository, n int) []*entities.Feedback {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seeded := make([]*entities.Feedback, 0, n)
	for i := 0; i < n; i++ {
		f := &entities.Feedback{
			ID:         fmt.Sprintf("fb-%03d", i),
			ReceivedAt: base.Add(time.Duration(i) * time.Hour),
			State:      entities.FeedbackStateReceived,
			KioskID:    "kiosk-1",
		}
		if i%2 == 0 {
			f.State = entities.FeedbackStateCompleted
			f.Sentiment = &entities.SentimentResult{Label: entities.SentimentPositive}
		}
		if err := repo.Create(context.Background(), f); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		seeded = append(seeded, f)
	}
	return seeded
}

func TestFeedbackCreateAndGet(t *testing.T) {
	repo := NewFeedbackRepository()
	feedback := entities.NewFeedback("kiosk-1", "token-1")

	if err := repo.Create(context.Background(), feedback); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(context.Background(), feedback); err == nil {
		t.Error("Expected duplicate create to be rejected")
	}

	got, err := repo.GetByID(context.Background(), feedback.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.ID != feedback.ID {
		t.Errorf("Expected id %s, got %s", feedback.ID, got.ID)
	}

	// Stored row must be isolated from later caller mutation.
	feedback.State = entities.FeedbackStateCompleted
	got, _ = repo.GetByID(context.Background(), feedback.ID)
	if got.State != entities.FeedbackStateReceived {
		t.Errorf("Expected stored state RECEIVED, got %s", got.State)
	}
}

func TestFeedbackGetMissing(t *testing.T) {
	repo := NewFeedbackRepository()

	_, err := repo.GetByID(context.Background(), "missing")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected *domain.NotFoundError, got %v", err)
	}
}

func TestFeedbackUpdateMissingIsNoOp(t *testing.T) {
	repo := NewFeedbackRepository()
	ghost := entities.NewFeedback("kiosk-1", "token-1")

	if err := repo.Update(context.Background(), ghost); err != nil {
		t.Errorf("Expected update of a missing row to be a no-op, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), ghost.ID); err == nil {
		t.Error("Expected the no-op update not to insert a row")
	}
}

func TestFindPagination(t *testing.T) {
	repo := NewFeedbackRepository()
	seedFeedback(t, repo, 7)

	page, err := repo.Find(context.Background(), repositories.FeedbackFilter{}, repositories.PageRequest{
		Number: 1, Size: 3, SortBy: repositories.SortByID, Ascending: true,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if page.TotalItems != 7 {
		t.Errorf("Expected 7 total items, got %d", page.TotalItems)
	}
	if len(page.Items) != 3 {
		t.Fatalf("Expected 3 items on page 1, got %d", len(page.Items))
	}
	if page.Items[0].ID != "fb-003" {
		t.Errorf("Expected page 1 to start at fb-003, got %s", page.Items[0].ID)
	}

	// Last page is short, a page past the end is empty.
	last, _ := repo.Find(context.Background(), repositories.FeedbackFilter{}, repositories.PageRequest{
		Number: 2, Size: 3, SortBy: repositories.SortByID, Ascending: true,
	})
	if len(last.Items) != 1 {
		t.Errorf("Expected 1 item on the last page, got %d", len(last.Items))
	}
	beyond, _ := repo.Find(context.Background(), repositories.FeedbackFilter{}, repositories.PageRequest{
		Number: 9, Size: 3, SortBy: repositories.SortByID, Ascending: true,
	})
	if len(beyond.Items) != 0 {
		t.Errorf("Expected no items past the end, got %d", len(beyond.Items))
	}
}

func TestFindSortByReceivedAtDescending(t *testing.T) {
	repo := NewFeedbackRepository()
	seeded := seedFeedback(t, repo, 5)

	page, err := repo.Find(context.Background(), repositories.FeedbackFilter{}, repositories.PageRequest{
		Number: 0, Size: 10, SortBy: repositories.SortByReceivedAt, Ascending: false,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if page.Items[0].ID != seeded[len(seeded)-1].ID {
		t.Errorf("Expected newest feedback first, got %s", page.Items[0].ID)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].ReceivedAt.After(page.Items[i-1].ReceivedAt) {
			t.Fatalf("Expected descending receivedAt order at index %d", i)
		}
	}
}

func TestFindFilters(t *testing.T) {
	repo := NewFeedbackRepository()
	seedFeedback(t, repo, 6)

	completed := entities.FeedbackStateCompleted
	page, err := repo.Find(context.Background(), repositories.FeedbackFilter{State: &completed}, repositories.PageRequest{
		Number: 0, Size: 10, SortBy: repositories.SortByID, Ascending: true,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if page.TotalItems != 3 {
		t.Errorf("Expected 3 completed rows, got %d", page.TotalItems)
	}

	positive := entities.SentimentPositive
	page, _ = repo.Find(context.Background(), repositories.FeedbackFilter{Sentiment: &positive}, repositories.PageRequest{
		Number: 0, Size: 10, SortBy: repositories.SortByID, Ascending: true,
	})
	if page.TotalItems != 3 {
		t.Errorf("Expected 3 positive rows, got %d", page.TotalItems)
	}

	negative := entities.SentimentNegative
	page, _ = repo.Find(context.Background(), repositories.FeedbackFilter{Sentiment: &negative}, repositories.PageRequest{
		Number: 0, Size: 10, SortBy: repositories.SortByID, Ascending: true,
	})
	if page.TotalItems != 0 {
		t.Errorf("Expected no negative rows, got %d", page.TotalItems)
	}
}

func TestFindDateWindow(t *testing.T) {
	repo := NewFeedbackRepository()
	seedFeedback(t, repo, 6)

	start := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 13, 30, 0, 0, time.UTC)
	page, err := repo.Find(context.Background(), repositories.FeedbackFilter{Start: &start, End: &end}, repositories.PageRequest{
		Number: 0, Size: 10, SortBy: repositories.SortByReceivedAt, Ascending: true,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	// Seeded hourly from 09:00, so the window holds 11:00, 12:00 and 13:00.
	if page.TotalItems != 3 {
		t.Fatalf("Expected 3 rows in the window, got %d", page.TotalItems)
	}
	for _, f := range page.Items {
		if f.ReceivedAt.Before(start) || f.ReceivedAt.After(end) {
			t.Errorf("Feedback %s at %s falls outside the window", f.ID, f.ReceivedAt)
		}
	}
}

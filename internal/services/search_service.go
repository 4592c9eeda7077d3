package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/repository"
)

type EntrySearchResult struct {
	Entries []models.Entry
	Total   int64
	Oldest  time.Time
	Newest  time.Time
}

type BranchSearchResult struct {
	Entries []models.BranchEntry
	Total   int64
	Oldest  time.Time
	Newest  time.Time
}

// SearchEntries runs the scoped hierarchy query plus the two aggregate
// side-queries (count, created_at bounds) the envelope needs. The bounds
// reflect the whole filtered set, not the requested page.
func SearchEntries(ctx context.Context, q models.EntryQuery) (*EntrySearchResult, error) {
	total, err := repository.CountEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	oldest, newest, err := repository.EntryBounds(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("entry bounds: %w", err)
	}
	entries, err := repository.FindEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	return &EntrySearchResult{Entries: entries, Total: total, Oldest: oldest, Newest: newest}, nil
}

// SearchBranchEntries is the branch counterpart of SearchEntries.
func SearchBranchEntries(ctx context.Context, q models.EntryQuery) (*BranchSearchResult, error) {
	total, err := repository.CountBranchEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count branch entries: %w", err)
	}
	oldest, newest, err := repository.BranchEntryBounds(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("branch entry bounds: %w", err)
	}
	entries, err := repository.FindBranchEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find branch entries: %w", err)
	}
	return &BranchSearchResult{Entries: entries, Total: total, Oldest: oldest, Newest: newest}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/epicollect5/epicollect5-server-sub006/database"
	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/repository"
)

// CreateEntry runs the whole upload path for a hierarchy entry: build,
// resolve the parent, then check uniqueness, insert and bump the parent's
// child counts inside one transaction. Checking inside the transaction is
// what makes two concurrent uploads of the same unique value serialize
// instead of both passing. A dto.APIError return means the submission was
// rejected; nothing is persisted in that case.
func CreateEntry(ctx context.Context, project *models.Project, doc *models.Document, userID string) (*models.Entry, error) {
	builder, err := NewEntryBuilder(project, doc, userID)
	if err != nil {
		return nil, builderError(err, doc)
	}
	if err := builder.Build(); err != nil {
		return nil, fmt.Errorf("build entry %s: %w", builder.UUID(), err)
	}

	// Root entries anchor their own hierarchy tree.
	topUUID := builder.UUID()
	var parent *models.Entry
	if parentUUID := builder.ParentUUID(); parentUUID != "" {
		parent, err = repository.GetEntryByUUID(ctx, project.ID, parentUUID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent %s: %w", parentUUID, err)
		}
		if parent == nil {
			return nil, dto.NewError(dto.CodeParentNotFound, parentUUID)
		}
		topUUID = parent.TopUUID
	}

	entry, err := builder.ToEntry(topUUID)
	if err != nil {
		return nil, fmt.Errorf("serialize entry %s: %w", builder.UUID(), err)
	}

	err = withTransaction(ctx, func(ctx context.Context) error {
		if apiErr := runUniqueChecks(ctx, project, builder, topUUID, repository.AnswerExists); apiErr != nil {
			return *apiErr
		}
		if err := repository.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if parent != nil {
			counts, err := repository.ChildCountsFor(ctx, project.ID, parent.UUID)
			if err != nil {
				return err
			}
			if err := repository.SetEntryCounts(ctx, project.ID, parent.UUID, "child_counts", counts); err != nil {
				return err
			}
		}
		return repository.TouchProjectStats(ctx, project.ID)
	})
	if err != nil {
		var apiErr dto.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("persist entry %s: %w", entry.UUID, err)
	}

	zap.S().Infow("entry created", "project", project.Slug, "form", entry.FormRef, "uuid", entry.UUID)
	return &entry, nil
}

// CreateBranchEntry runs the upload path for a branch entry. An owner that
// cannot be resolved is fatal for the submission, never silently dropped.
func CreateBranchEntry(ctx context.Context, project *models.Project, doc *models.Document, userID string) (*models.BranchEntry, error) {
	builder, err := NewEntryBuilder(project, doc, userID)
	if err != nil {
		return nil, builderError(err, doc)
	}

	branchInput := project.BranchInput(builder.OwnerInputRef())
	if branchInput == nil {
		return nil, dto.NewError(dto.CodeInvalidQueryParam, builder.OwnerInputRef())
	}

	owner, err := repository.GetEntryByUUID(ctx, project.ID, builder.OwnerUUID())
	if err != nil {
		return nil, fmt.Errorf("resolve owner %s: %w", builder.OwnerUUID(), err)
	}
	if owner == nil {
		return nil, dto.NewError(dto.CodeOwnerNotFound, builder.OwnerUUID())
	}
	builder.SetOwnerEntry(owner)

	if err := builder.Build(); err != nil {
		return nil, fmt.Errorf("build branch entry %s: %w", builder.UUID(), err)
	}

	entry, err := builder.ToBranchEntry()
	if err != nil {
		return nil, fmt.Errorf("serialize branch entry %s: %w", builder.UUID(), err)
	}

	err = withTransaction(ctx, func(ctx context.Context) error {
		if apiErr := runUniqueChecks(ctx, project, builder, owner.TopUUID, repository.AnswerExists); apiErr != nil {
			return *apiErr
		}
		if err := repository.InsertBranchEntry(ctx, entry); err != nil {
			return err
		}
		counts, err := repository.BranchCountsFor(ctx, project.ID, owner.UUID)
		if err != nil {
			return err
		}
		if err := repository.SetEntryCounts(ctx, project.ID, owner.UUID, "branch_counts", counts); err != nil {
			return err
		}
		return repository.TouchProjectStats(ctx, project.ID)
	})
	if err != nil {
		var apiErr dto.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("persist branch entry %s: %w", entry.UUID, err)
	}

	zap.S().Infow("branch entry created", "project", project.Slug, "owner", entry.OwnerUUID, "uuid", entry.UUID)
	return &entry, nil
}

// DeleteEntry removes an entry, all its descendants and every branch entry
// they own, then refreshes the parent's counts — one transaction, so no
// orphans survive a failure.
func DeleteEntry(ctx context.Context, project *models.Project, entryUUID string) error {
	entry, err := repository.GetEntryByUUID(ctx, project.ID, entryUUID)
	if err != nil {
		return fmt.Errorf("resolve entry %s: %w", entryUUID, err)
	}
	if entry == nil {
		return dto.NewError(dto.CodeEntryNotFound, entryUUID)
	}

	// Breadth-first over the subtree.
	doomed := []string{entry.UUID}
	for frontier := []string{entry.UUID}; len(frontier) > 0; {
		next := []string{}
		for _, parentUUID := range frontier {
			children, err := repository.ChildUUIDs(ctx, project.ID, parentUUID)
			if err != nil {
				return fmt.Errorf("collect children of %s: %w", parentUUID, err)
			}
			next = append(next, children...)
		}
		doomed = append(doomed, next...)
		frontier = next
	}

	err = withTransaction(ctx, func(ctx context.Context) error {
		if err := repository.DeleteBranchEntriesByOwners(ctx, project.ID, doomed); err != nil {
			return err
		}
		if err := repository.DeleteEntries(ctx, project.ID, doomed); err != nil {
			return err
		}
		if entry.ParentUUID != "" {
			counts, err := repository.ChildCountsFor(ctx, project.ID, entry.ParentUUID)
			if err != nil {
				return err
			}
			if err := repository.SetEntryCounts(ctx, project.ID, entry.ParentUUID, "child_counts", counts); err != nil {
				return err
			}
		}
		return repository.TouchProjectStats(ctx, project.ID)
	})
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", entryUUID, err)
	}

	zap.S().Infow("entry deleted", "project", project.Slug, "uuid", entryUUID, "cascaded", len(doomed)-1)
	return nil
}

// builderError maps a document that could not even start building: a
// missing payload is a malformed body, everything else is an unknown form.
func builderError(err error, doc *models.Document) error {
	if errors.Is(err, errNoPayload) {
		return dto.NewError(dto.CodeInvalidQueryParam, "body")
	}
	return dto.NewError(dto.CodeFormNotFound, doc.Attributes.Form.Ref)
}

// runUniqueChecks executes the builder's queued checks. The caller runs it
// on the transaction's session context so the lookups and the insert are
// one atomic unit.
func runUniqueChecks(ctx context.Context, project *models.Project, builder *EntryBuilder, topUUID string, exists repository.ExistsFunc) *dto.APIError {
	for _, check := range builder.Checks() {
		violation, err := CheckUnique(ctx, project, check.Input, check.Value, topUUID, builder.UUID(), exists)
		if err != nil {
			zap.S().Errorw("uniqueness check failed", "input", check.Input.Ref, "error", err)
			apiErr := dto.NewError(dto.CodeInvalidQueryParam, check.Input.Ref)
			return &apiErr
		}
		if violation != nil {
			apiErr := dto.NewError(dto.CodeNotUnique, violation.InputRef)
			return &apiErr
		}
	}
	return nil
}

func withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := database.DB.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vosbek/docxp/internal/core/domain"
	"github.com/vosbek/docxp/internal/core/ports"
)

// RegisterRepositoryUseCase records a source tree pinned to a revision and
// hands it to the indexing worker via the queue. Cloning/checkout happens
// outside this system; the caller supplies an on-disk path.
type RegisterRepositoryUseCase struct {
	store ports.RepositoryStore
	queue ports.MessageQueue
}

func NewRegisterRepositoryUseCase(
	store ports.RepositoryStore,
	queue ports.MessageQueue,
) *RegisterRepositoryUseCase {
	return &RegisterRepositoryUseCase{
		store: store,
		queue: queue,
	}
}

func (uc *RegisterRepositoryUseCase) Register(
	ctx context.Context,
	name, sourcePath, commit string,
) (*domain.Repository, error) {
	name = strings.TrimSpace(name)
	sourcePath = strings.TrimSpace(sourcePath)
	commit = strings.TrimSpace(commit)

	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register repository", fmt.Errorf("name is required"))
	}
	if sourcePath == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register repository", fmt.Errorf("source path is required"))
	}
	if commit == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register repository", fmt.Errorf("commit is required"))
	}

	now := time.Now().UTC()
	repo := &domain.Repository{
		ID:         uuid.NewString(),
		Name:       name,
		SourcePath: sourcePath,
		Commit:     commit,
		Status:     domain.StatusRegistered,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.store.Create(ctx, repo); err != nil {
		return nil, fmt.Errorf("create repository record: %w", err)
	}

	if err := uc.queue.PublishRepositoryIngested(ctx, repo.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return repo, nil
}

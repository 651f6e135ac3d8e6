package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/snapfeed/service/internal/auth"
	"github.com/snapfeed/service/internal/storage"
)

// ErrInvalidArgument is returned for malformed identifiers, missing required
// fields, and empty patches. It is always raised before any store mutation.
var ErrInvalidArgument = errors.New("invalid argument")

// Service contains the business logic for the media feed. It validates
// input, reads and writes through the repository, and rewrites every stored
// object key into a presigned download URL before an item leaves the
// service. Authentication happens at the boundary: mutating methods take an
// already-verified Identity and never verify credentials themselves.
type Service struct {
	repo   Repository
	signer storage.Signer
}

// NewService creates a new feed Service.
func NewService(repo Repository, signer storage.Signer) *Service {
	return &Service{repo: repo, signer: signer}
}

// List returns all items ordered by id descending, each with a freshly
// signed download URL.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.FindAllOrdered(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := s.sign(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Get returns the item with the given id, signed.
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: id must be non-negative", ErrInvalidArgument)
	}
	it, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.sign(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Create validates and persists a new item, returning it signed. Validation
// failures leave the store untouched.
func (s *Service) Create(ctx context.Context, ident auth.Identity, caption, objectKey string) (*Item, error) {
	if caption == "" {
		return nil, fmt.Errorf("%w: caption is required", ErrInvalidArgument)
	}
	if objectKey == "" {
		return nil, fmt.Errorf("%w: file url is required", ErrInvalidArgument)
	}

	it, err := s.repo.Create(ctx, caption, objectKey)
	if err != nil {
		return nil, err
	}
	if err := s.sign(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Update applies a partial patch to the item with the given id and returns
// the post-update row, signed. Only fields present in the patch are touched;
// the row is written only if a field actually changed. Concurrent updates
// are last-write-wins.
func (s *Service) Update(ctx context.Context, ident auth.Identity, id int64, patch Patch) (*Item, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: id must be non-negative", ErrInvalidArgument)
	}
	if patch.Caption == nil && patch.ObjectKey == nil {
		return nil, fmt.Errorf("%w: nothing specified to update", ErrInvalidArgument)
	}

	it, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.Caption != nil && *patch.Caption != it.Caption {
		it.Caption = *patch.Caption
		changed = true
	}
	if patch.ObjectKey != nil && *patch.ObjectKey != it.ObjectKey {
		it.ObjectKey = *patch.ObjectKey
		changed = true
	}

	if changed {
		it, err = s.repo.Update(ctx, id, it.Caption, it.ObjectKey)
		if err != nil {
			return nil, err
		}
	}

	if err := s.sign(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// IssueUploadTarget issues a presigned upload URL for fileName, the key the
// client will later post back as the item's file url.
func (s *Service) IssueUploadTarget(ctx context.Context, ident auth.Identity, fileName string) (storage.Grant, error) {
	if fileName == "" {
		return storage.Grant{}, fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}
	return s.signer.SignedPutURL(ctx, fileName)
}

// sign replaces the item's object key with a fresh presigned download URL.
// Items without a key pass through unchanged. A signing failure aborts the
// whole response so a raw key never leaks.
func (s *Service) sign(ctx context.Context, it *Item) error {
	if it.ObjectKey == "" {
		return nil
	}
	grant, err := s.signer.SignedGetURL(ctx, it.ObjectKey)
	if err != nil {
		return err
	}
	it.URL = grant.URL
	return nil
}

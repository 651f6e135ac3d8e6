package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/snapfeed/service/internal/auth"
	"github.com/snapfeed/service/internal/storage"
)

// fakeRepo is an in-memory Repository for tests.
type fakeRepo struct {
	items       map[int64]Item
	nextID      int64
	createCalls int
	updateCalls int
	findCalls   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]Item{}}
}

func (r *fakeRepo) Find(ctx context.Context, id int64) (*Item, error) {
	r.findCalls++
	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (r *fakeRepo) FindAllOrdered(ctx context.Context) ([]Item, error) {
	ids := make([]int64, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, r.items[id])
	}
	return items, nil
}

func (r *fakeRepo) Create(ctx context.Context, caption, objectKey string) (*Item, error) {
	r.createCalls++
	r.nextID++
	it := Item{
		ID:        r.nextID,
		Caption:   caption,
		ObjectKey: objectKey,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.items[it.ID] = it
	return &it, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, caption, objectKey string) (*Item, error) {
	r.updateCalls++
	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	it.Caption = caption
	it.ObjectKey = objectKey
	it.UpdatedAt = time.Now()
	r.items[id] = it
	return &it, nil
}

// fakeSigner issues a distinct URL on every call, like a real presigner.
type fakeSigner struct {
	calls int
}

func (s *fakeSigner) SignedGetURL(ctx context.Context, key string) (storage.Grant, error) {
	s.calls++
	return storage.Grant{
		URL:       fmt.Sprintf("https://storage.test/%s?X-Sig=%d", key, s.calls),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

func (s *fakeSigner) SignedPutURL(ctx context.Context, key string) (storage.Grant, error) {
	s.calls++
	return storage.Grant{
		URL:       fmt.Sprintf("https://storage.test/%s?X-Sig=%d&op=put", key, s.calls),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

// failingSigner simulates an unreachable storage backend.
type failingSigner struct{}

func (failingSigner) SignedGetURL(ctx context.Context, key string) (storage.Grant, error) {
	return storage.Grant{}, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (failingSigner) SignedPutURL(ctx context.Context, key string) (storage.Grant, error) {
	return storage.Grant{}, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

var testIdentity = auth.Identity{Subject: "user-1", ExpiresAt: time.Now().Add(time.Hour)}

func TestCreateThenGet(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})
	ctx := context.Background()

	created, err := svc.Create(ctx, testIdentity, "sunset", "img/123.png")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Caption != "sunset" {
		t.Fatalf("expected caption sunset, got %q", created.Caption)
	}
	if created.URL == "" || created.URL == "img/123.png" {
		t.Fatalf("expected signed url, got %q", created.URL)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Caption != "sunset" {
		t.Fatalf("expected caption sunset, got %q", got.Caption)
	}
	if got.URL == "" {
		t.Fatal("expected signed url on get")
	}
	// Signing is non-idempotent: each egress gets a fresh grant.
	if got.URL == created.URL {
		t.Fatalf("expected fresh signed url, got identical %q", got.URL)
	}
}

func TestCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})
	ctx := context.Background()

	if _, err := svc.Create(ctx, testIdentity, "", "img/123.png"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty caption, got %v", err)
	}
	if _, err := svc.Create(ctx, testIdentity, "sunset", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty key, got %v", err)
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no store writes on validation failure, got %d", repo.createCalls)
	}
}

func TestGetNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeSigner{})

	if _, err := svc.Get(context.Background(), 999999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetNegativeID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})

	if _, err := svc.Get(context.Background(), -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if repo.findCalls != 0 {
		t.Fatal("expected no store read for invalid id")
	}
}

func TestUpdateEmptyPatch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})

	_, err := svc.Update(context.Background(), testIdentity, 1, Patch{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if repo.findCalls != 0 {
		t.Fatal("expected empty patch rejected before any store access")
	}
}

func TestUpdatePartial(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})
	ctx := context.Background()

	created, err := svc.Create(ctx, testIdentity, "sunset", "img/123.png")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	caption := "sunset2"
	updated, err := svc.Update(ctx, testIdentity, created.ID, Patch{Caption: &caption})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Caption != "sunset2" {
		t.Fatalf("expected caption sunset2, got %q", updated.Caption)
	}
	// The underlying key is untouched; the URL is freshly re-signed.
	if updated.ObjectKey != "img/123.png" {
		t.Fatalf("expected object key unchanged, got %q", updated.ObjectKey)
	}
	if updated.URL == "" || updated.URL == created.URL {
		t.Fatalf("expected fresh signed url, got %q", updated.URL)
	}
	if repo.updateCalls != 1 {
		t.Fatalf("expected one store write, got %d", repo.updateCalls)
	}
}

func TestUpdateNoChangeSkipsWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})
	ctx := context.Background()

	created, err := svc.Create(ctx, testIdentity, "sunset", "img/123.png")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	caption := "sunset"
	if _, err := svc.Update(ctx, testIdentity, created.ID, Patch{Caption: &caption}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("expected no store write for no-op patch, got %d", repo.updateCalls)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeSigner{})

	caption := "sunset"
	_, err := svc.Update(context.Background(), testIdentity, 42, Patch{Caption: &caption})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeSigner{})
	ctx := context.Background()

	for _, caption := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, testIdentity, caption, "img/"+caption+".png"); err != nil {
			t.Fatalf("create %s: %v", caption, err)
		}
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, caption := range []string{"c", "b", "a"} {
		if items[i].Caption != caption {
			t.Fatalf("expected caption %q at position %d, got %q", caption, i, items[i].Caption)
		}
	}
	for i := 0; i < len(items)-1; i++ {
		if items[i].ID <= items[i+1].ID {
			t.Fatalf("expected strictly descending ids, got %d then %d", items[i].ID, items[i+1].ID)
		}
	}
}

func TestListSkipsSigningForKeylessItems(t *testing.T) {
	repo := newFakeRepo()
	repo.nextID++
	repo.items[repo.nextID] = Item{ID: repo.nextID, Caption: "no media"}

	signer := &fakeSigner{}
	svc := NewService(repo, signer)

	items, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].URL != "" {
		t.Fatalf("expected keyless item to pass through unsigned, got %q", items[0].URL)
	}
	if signer.calls != 0 {
		t.Fatalf("expected no signer calls, got %d", signer.calls)
	}
}

func TestSignerFailureAbortsResponse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, failingSigner{})
	ctx := context.Background()

	if _, err := repo.Create(ctx, "sunset", "img/123.png"); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	if _, err := svc.List(ctx); !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from list, got %v", err)
	}
	if _, err := svc.Get(ctx, 1); !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from get, got %v", err)
	}
	if _, err := svc.IssueUploadTarget(ctx, testIdentity, "img/new.png"); !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from upload target, got %v", err)
	}
}

func TestIssueUploadTarget(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeSigner{})

	grant, err := svc.IssueUploadTarget(context.Background(), testIdentity, "img/new.png")
	if err != nil {
		t.Fatalf("issue upload target: %v", err)
	}
	if !strings.Contains(grant.URL, "img/new.png") {
		t.Fatalf("expected url for requested key, got %q", grant.URL)
	}
	if grant.ExpiresAt.IsZero() {
		t.Fatal("expected expiry on grant")
	}

	if _, err := svc.IssueUploadTarget(context.Background(), testIdentity, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty file name, got %v", err)
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	repo "github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
	"github.com/Aciila/go-ddd-boilerplate/internal/infrastructure/sqlite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entity.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingIndexer struct {
	indexed map[string]string
	removed []string
	hits    []SearchHit
	err     error
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{indexed: map[string]string{}}
}

func (i *recordingIndexer) Index(_ context.Context, u *entity.User) error {
	i.indexed[u.ID] = u.Email
	return i.err
}

func (i *recordingIndexer) Remove(_ context.Context, id string) error {
	delete(i.indexed, id)
	i.removed = append(i.removed, id)
	return i.err
}

func (i *recordingIndexer) Search(_ context.Context, _ string, size int) ([]SearchHit, error) {
	if i.err != nil {
		return nil, i.err
	}
	if len(i.hits) > size {
		return i.hits[:size], nil
	}
	return i.hits, nil
}

func newTestService(t *testing.T, opts ...Option) *UserService {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserService(sqlite.NewUserRepository(db), opts...)
}

func strPtr(s string) *string { return &s }

func TestCreateThenGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "Ann@X.com", Name: "  Ann "})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.Equal(t, "Ann", got.Name)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.UpdatedAt)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), CreateUserInput{Email: "", Name: "Ann"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Create(context.Background(), CreateUserInput{Email: "a@x.com", Name: "A"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestCreate_DuplicateEmailAndReuseAfterDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "A@x.com", Name: "Bob"})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists), "got %v", err)

	require.NoError(t, svc.Delete(ctx, first.ID))

	again, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Bob"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestUpdate_InvalidNameLeavesRowUnchanged(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, u.ID, UpdateUserInput{Name: strPtr("A")})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Nil(t, got.UpdatedAt)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, u.ID, UpdateUserInput{Name: strPtr("Annabel")})
	require.NoError(t, err)
	assert.Equal(t, "Annabel", updated.Name)
	assert.Equal(t, "a@x.com", updated.Email)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, u.CreatedAt.UnixNano(), updated.CreatedAt.UnixNano())

	// same email in a different case is not a change and not a conflict with itself
	same, err := svc.Update(ctx, u.ID, UpdateUserInput{Email: strPtr("A@X.COM")})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", same.Email)
}

func TestUpdate_EmailConflictAndNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "b@x.com", Name: "Bob"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, UpdateUserInput{Email: strPtr("b@x.com")})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists))

	_, err = svc.Update(ctx, a.ID, UpdateUserInput{Email: strPtr("nope")})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Update(ctx, "00000000-0000-0000-0000-000000000000", UpdateUserInput{Name: strPtr("Zed")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestDelete_Twice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, u.ID))

	_, err = svc.GetByID(ctx, u.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	err = svc.Delete(ctx, u.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = svc.Update(ctx, u.ID, UpdateUserInput{Name: strPtr("Ghost")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestList_PagingAndTotal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := svc.Create(ctx, CreateUserInput{Email: fmt.Sprintf("u%02d@x.com", i), Name: fmt.Sprintf("User %02d", i)})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Users, 10)
	assert.Equal(t, 15, page.Total)
	assert.Equal(t, "u00@x.com", page.Users[0].Email)

	rest, err := svc.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Len(t, rest.Users, 5)
	assert.Equal(t, 15, rest.Total)
	assert.Equal(t, 10, rest.Offset)

	defaults, err := svc.List(ctx, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, defaults.Limit)
	assert.Equal(t, 0, defaults.Offset)

	capped, err := svc.List(ctx, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, capped.Limit)
}

func TestList_ExcludesDeletedAndInactive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateUserInput{Email: "b@x.com", Name: "Bob"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateUserInput{Email: "c@x.com", Name: "Cid"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.SetActive(ctx, b.ID, false)
	require.NoError(t, err)

	page, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "c@x.com", page.Users[0].Email)

	// inactive users are still addressable by id
	got, err := svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestSetActive(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, WithPublisher(pub))
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	same, err := svc.SetActive(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, same.IsActive)

	off, err := svc.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)
	assert.NotNil(t, off.UpdatedAt)

	on, err := svc.SetActive(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	assert.Equal(t, []entity.EventType{
		entity.EventUserCreated,
		entity.EventUserDeactivated,
		entity.EventUserActivated,
	}, pub.types())
}

func TestScenario(t *testing.T) {
	pub := &recordingPublisher{}
	idx := newRecordingIndexer()
	svc := newTestService(t, WithPublisher(pub), WithIndexer(idx))
	ctx := context.Background()

	ann, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Bob"})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists))

	moved, err := svc.Update(ctx, ann.ID, UpdateUserInput{Email: strPtr("b@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", moved.Email)

	cid, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Cid"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ann.ID))
	_, err = svc.GetByID(ctx, ann.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	assert.Equal(t, []entity.EventType{
		entity.EventUserCreated,
		entity.EventUserUpdated,
		entity.EventUserCreated,
		entity.EventUserDeleted,
	}, pub.types())
	assert.Equal(t, map[string]string{cid.ID: "a@x.com"}, idx.indexed)
	assert.Equal(t, []string{ann.ID}, idx.removed)
}

func TestSideEffectFailuresDoNotFailWrites(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	idx := newRecordingIndexer()
	idx.err = errors.New("index down")
	svc := newTestService(t, WithPublisher(pub), WithIndexer(idx))

	u, err := svc.Create(context.Background(), CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(context.Background(), u.ID))
}

func TestSearch(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Search(context.Background(), "   ", 10)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	hits, err := svc.Search(context.Background(), "ann", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	idx := newRecordingIndexer()
	idx.hits = []SearchHit{{ID: "1", Email: "ann@x.com", Name: "Ann"}}
	svc = newTestService(t, WithIndexer(idx))
	hits, err = svc.Search(context.Background(), "ann", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	idx.err = errors.New("es unavailable")
	_, err = svc.Search(context.Background(), "ann", 5)
	assert.True(t, domain.IsKind(err, domain.KindInternal))
}

// stubRepo drives the failure paths a real store only hits under races or outages.
type stubRepo struct {
	findOne      func(repo.UserFilter) (*entity.User, error)
	insertErr    error
	updateErr    error
	findPageErr  error
	countErr     error
	updateCalled bool
}

func (r *stubRepo) FindOne(_ context.Context, f repo.UserFilter) (*entity.User, error) {
	return r.findOne(f)
}

func (r *stubRepo) FindPage(context.Context, repo.UserFilter, int, int) ([]*entity.User, error) {
	return nil, r.findPageErr
}

func (r *stubRepo) Count(context.Context, repo.UserFilter) (int, error) { return 0, r.countErr }

func (r *stubRepo) Insert(_ context.Context, u *entity.User) (*entity.User, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	return u, nil
}

func (r *stubRepo) UpdateFields(context.Context, string, repo.UserFields) (*entity.User, error) {
	r.updateCalled = true
	return nil, r.updateErr
}

func (r *stubRepo) Ping(context.Context) error { return nil }

func aliveUser(t *testing.T) *entity.User {
	t.Helper()
	u, err := entity.NewUser("a@x.com", "Ann")
	require.NoError(t, err)
	u.ClearEvents()
	return u
}

func TestUpdate_RowVanishedBeforeWrite(t *testing.T) {
	u := aliveUser(t)
	r := &stubRepo{
		findOne: func(f repo.UserFilter) (*entity.User, error) {
			if f.ID != "" {
				return u, nil
			}
			return nil, repo.ErrNotFound
		},
		updateErr: repo.ErrNotFound,
	}
	svc := NewUserService(r)

	_, err := svc.Update(context.Background(), u.ID, UpdateUserInput{Name: strPtr("Annabel")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.True(t, r.updateCalled)

	err = svc.Delete(context.Background(), u.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCreate_UniqueIndexRaceIsAlreadyExists(t *testing.T) {
	r := &stubRepo{
		findOne:   func(repo.UserFilter) (*entity.User, error) { return nil, repo.ErrNotFound },
		insertErr: repo.ErrDuplicate,
	}
	_, err := NewUserService(r).Create(context.Background(), CreateUserInput{Email: "a@x.com", Name: "Ann"})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists))
}

func TestStorageFailuresAreInternal(t *testing.T) {
	boom := errors.New("connection reset")
	r := &stubRepo{
		findOne:     func(repo.UserFilter) (*entity.User, error) { return nil, boom },
		findPageErr: boom,
	}
	svc := NewUserService(r)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, "id")
	assert.True(t, domain.IsKind(err, domain.KindInternal))
	assert.ErrorIs(t, err, boom)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	assert.True(t, domain.IsKind(err, domain.KindInternal))

	_, err = svc.List(ctx, 10, 0)
	assert.True(t, domain.IsKind(err, domain.KindInternal))

	r.findPageErr = nil
	r.countErr = boom
	_, err = svc.List(ctx, 10, 0)
	assert.True(t, domain.IsKind(err, domain.KindInternal))
}

func TestUpdate_NothingToChange(t *testing.T) {
	u := aliveUser(t)
	r := &stubRepo{findOne: func(repo.UserFilter) (*entity.User, error) { return u, nil }}

	got, err := NewUserService(r).Update(context.Background(), u.ID, UpdateUserInput{})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, r.updateCalled)
}

func TestDelete_ConcurrentCallsSucceedOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = svc.Delete(ctx, u.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.IsKind(err, domain.KindNotFound):
			notFound++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, notFound)
}

func TestUpdate_UniqueIndexRaceIsAlreadyExists(t *testing.T) {
	u := aliveUser(t)
	r := &stubRepo{
		findOne: func(f repo.UserFilter) (*entity.User, error) {
			if f.ID != "" {
				return u, nil
			}
			return nil, repo.ErrNotFound
		},
		updateErr: repo.ErrDuplicate,
	}

	_, err := NewUserService(r).Update(context.Background(), u.ID, UpdateUserInput{Email: strPtr("b@x.com")})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists), "got %v", err)
	assert.True(t, r.updateCalled)
}

func TestCreate_TakenEmailReportedBeforeName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "A"})
	assert.True(t, domain.IsKind(err, domain.KindAlreadyExists), "got %v", err)

	_, err = svc.Create(ctx, CreateUserInput{Email: "not-an-email", Name: "Ann"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestWrites_StampUpdatedAtFromClock(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateUserInput{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, u.ID, UpdateUserInput{Name: strPtr("Annabel")})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, fixed.Equal(*updated.UpdatedAt))

	deactivated, err := svc.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	require.NotNil(t, deactivated.UpdatedAt)
	assert.True(t, fixed.Equal(*deactivated.UpdatedAt))
}

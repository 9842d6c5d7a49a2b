package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/hongyu-crm/crm-backend/internal/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// countingStore records how many writes reach the underlying store.
type countingStore struct {
	repository.Store
	writes atomic.Int64
}

func (s *countingStore) UpsertCustomer(ctx context.Context, c domain.Customer) error {
	s.writes.Add(1)
	return s.Store.UpsertCustomer(ctx, c)
}

func (s *countingStore) DeleteCustomer(ctx context.Context, id string) error {
	s.writes.Add(1)
	return s.Store.DeleteCustomer(ctx, id)
}

type fakeImages struct {
	ingested        []string
	released        []string
	foreignReleases int
	fail            error
}

func (f *fakeImages) Ingest(_ context.Context, customerID, dataURI string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	url := fmt.Sprintf("https://cdn.test/customers/%s/%d.png", customerID, len(f.ingested))
	f.ingested = append(f.ingested, dataURI)
	return url, nil
}

func (f *fakeImages) Owner(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, "https://cdn.test/customers/")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	return id, true
}

// Release records every call; foreignReleases counts the ones a real store
// would have refused.
func (f *fakeImages) Release(_ context.Context, customerID, url string) {
	f.released = append(f.released, url)
	if owner, ok := f.Owner(url); ok && owner != customerID {
		f.foreignReleases++
	}
}

type fakeGenerator struct {
	text  string
	image string
	err   error
	calls int
	hook  func()
}

func (g *fakeGenerator) GenerateText(_ context.Context, _ genai.TextRequest) (string, error) {
	g.calls++
	if g.hook != nil {
		g.hook()
	}
	return g.text, g.err
}

func (g *fakeGenerator) GenerateImage(_ context.Context, _ string, _ genai.ImageStyle) (string, error) {
	g.calls++
	if g.hook != nil {
		g.hook()
	}
	return g.image, g.err
}

type fixture struct {
	store     *countingStore
	images    *fakeImages
	users     *UserService
	customers *CustomerService
	root      domain.User
	alice     domain.User
	bob       domain.User
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := &countingStore{Store: repository.NewMemoryStore()}
	images := &fakeImages{}
	clock := status.FixedClock(now)

	users := NewUserService(store, clock)
	created, err := users.EnsureSeed(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.True(t, created)

	root, err := store.GetUser(ctx, domain.SeedSuperAdminID)
	require.NoError(t, err)

	alice, err := users.Create(ctx, root, "alice", "pw-alice")
	require.NoError(t, err)
	bob, err := users.Create(ctx, root, "bob", "pw-bob")
	require.NoError(t, err)

	return &fixture{
		store:     store,
		images:    images,
		users:     users,
		customers: NewCustomerService(store, images, clock),
		root:      root,
		alice:     alice,
		bob:       bob,
	}
}

func (f *fixture) saveAs(t *testing.T, actor domain.User, name string, platform domain.Platform) domain.Customer {
	t.Helper()
	c, err := f.customers.Save(context.Background(), actor, domain.Customer{Name: name, Platform: platform})
	require.NoError(t, err)
	return c
}

func TestUserService_EnsureSeedIsIdempotent(t *testing.T) {
	f := setupFixture(t)

	created, err := f.users.EnsureSeed(context.Background(), "other", "other")
	require.NoError(t, err)
	assert.False(t, created)

	root, err := f.store.GetUser(context.Background(), domain.SeedSuperAdminID)
	require.NoError(t, err)
	assert.Equal(t, "admin", root.Username)
	assert.Equal(t, domain.RoleSuperAdmin, root.Role)
}

func TestUserService_Create(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	assert.Equal(t, domain.RoleAdmin, f.alice.Role)
	assert.False(t, f.alice.CanViewAll)
	assert.NotEqual(t, "pw-alice", f.alice.PasswordHash)

	_, err := f.users.Create(ctx, f.alice, "carol", "pw")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.users.Create(ctx, f.root, "alice", "another")
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	_, err = f.users.Create(ctx, f.root, "  ", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := f.users.List(ctx, f.root)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CanViewAll)

	_, err = f.users.List(ctx, f.bob)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUserService_Delete(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Delete(ctx, f.root, domain.SeedSuperAdminID))
	require.NoError(t, f.users.Delete(ctx, f.alice, domain.SeedSuperAdminID))
	_, err := f.store.GetUser(ctx, domain.SeedSuperAdminID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.Delete(ctx, f.alice, f.bob.ID), domain.ErrUnauthorized)

	require.NoError(t, f.users.Delete(ctx, f.root, f.bob.ID))
	require.NoError(t, f.users.Delete(ctx, f.root, f.bob.ID))
	_, err = f.store.GetUser(ctx, f.bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_SetCanViewAll(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	updated, err := f.users.SetCanViewAll(ctx, f.root, f.alice.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.CanViewAll)

	_, err = f.users.SetCanViewAll(ctx, f.alice, f.bob.ID, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.users.SetCanViewAll(ctx, f.root, "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	root, err := f.users.SetCanViewAll(ctx, f.root, domain.SeedSuperAdminID, false)
	require.NoError(t, err)
	assert.True(t, root.CanViewAll)
	assert.Equal(t, domain.RoleSuperAdmin, root.Role)
}

func TestCustomerService_SaveStampsTrackingAndCreator(t *testing.T) {
	f := setupFixture(t)

	c := f.saveAs(t, f.alice, "  Ms. Lin ", domain.PlatformXiaohongshu)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Ms. Lin", c.Name)
	assert.Equal(t, f.alice.ID, c.CreatorID)
	assert.True(t, c.LastTrackedDate.Equal(now))

	c.CreatorID = ""
	c.Notes = "called back"
	again, err := f.customers.Save(context.Background(), f.root, c)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, again.CreatorID)
}

func TestCustomerService_SaveValidates(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.customers.Save(ctx, f.alice, domain.Customer{Name: "", Platform: domain.PlatformXianyu})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.customers.Save(ctx, f.alice, domain.Customer{Name: "x", Platform: "douyin"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCustomerService_UnauthorizedSaveWritesNothing(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXianyu)
	before := f.store.writes.Load()

	c.Notes = "hijacked"
	_, err := f.customers.Save(ctx, f.bob, c)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Creating a record on someone else's behalf is also refused.
	_, err = f.customers.Save(ctx, f.bob, domain.Customer{Name: "x", Platform: domain.PlatformXianyu, CreatorID: f.alice.ID})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.ErrorIs(t, f.customers.Delete(ctx, f.bob, c.ID), domain.ErrUnauthorized)
	assert.Equal(t, before, f.store.writes.Load())

	stored, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Notes)
}

func TestCustomerService_ListVisibility(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	f.saveAs(t, f.alice, "A1", domain.PlatformXiaohongshu)
	f.saveAs(t, f.bob, "B1", domain.PlatformXianyu)
	f.saveAs(t, f.alice, "A2", domain.PlatformXianyu)

	names := func(views []CustomerView) []string {
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.Name)
		}
		return out
	}

	got, err := f.customers.List(ctx, f.alice, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, names(got))

	got, err = f.customers.List(ctx, f.root, ListQuery{Platform: domain.PlatformXianyu})
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "A2"}, names(got))

	_, err = f.users.SetCanViewAll(ctx, f.root, f.bob.ID, true)
	require.NoError(t, err)
	bob, err := f.store.GetUser(ctx, f.bob.ID)
	require.NoError(t, err)

	got, err = f.customers.List(ctx, bob, ListQuery{Search: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, names(got))

	_, err = f.customers.List(ctx, f.alice, ListQuery{Platform: "douyin"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCustomerService_ListOrdersByLastTracked(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewCustomerService(store, nil, status.FixedClock(now))
	root := domain.User{ID: domain.SeedSuperAdminID, Role: domain.RoleSuperAdmin}

	for i, name := range []string{"fresh", "stale", "mid"} {
		age := []time.Duration{0, 20 * 24 * time.Hour, 8 * 24 * time.Hour}[i]
		require.NoError(t, store.UpsertCustomer(ctx, domain.Customer{
			ID: name, CreatorID: root.ID, Name: name, Platform: domain.PlatformXianyu,
			LastTrackedDate: now.Add(-age),
		}))
	}

	got, err := svc.List(ctx, root, ListQuery{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "stale", got[0].ID)
	assert.Equal(t, status.UrgencyUrgent, got[0].Badges.FollowUp.Urgency)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, status.UrgencyWarning, got[1].Badges.FollowUp.Urgency)
	assert.Equal(t, "fresh", got[2].ID)
	assert.Equal(t, status.UrgencyContactedToday, got[2].Badges.FollowUp.Urgency)
	assert.Equal(t, status.StageProspect, got[2].Badges.Lifecycle.Stage)
}

func TestCustomerService_GetHidesInvisible(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXianyu)

	_, err := f.customers.Get(ctx, f.bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	view, err := f.customers.Get(ctx, f.root, c.ID)
	require.NoError(t, err)
	assert.Equal(t, status.UrgencyContactedToday, view.Badges.FollowUp.Urgency)
}

func TestCustomerService_AssetsAreImmutable(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)
	cw, err := f.customers.AddCopy(ctx, f.alice, c.ID, "original")
	require.NoError(t, err)

	stored, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	stored.Copywritings[0].Content = "tampered"
	stored.Copywritings = append(stored.Copywritings, domain.Copywriting{Content: "new"})

	saved, err := f.customers.Save(ctx, f.alice, stored)
	require.NoError(t, err)
	require.Len(t, saved.Copywritings, 2)
	assert.Equal(t, cw.ID, saved.Copywritings[0].ID)
	assert.Equal(t, "original", saved.Copywritings[0].Content)
	assert.NotEmpty(t, saved.Copywritings[1].ID)
	assert.True(t, saved.Copywritings[1].CreatedAt.Equal(now))
}

func TestCustomerService_ImagesLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)

	first, err := f.customers.AddImage(ctx, f.alice, c.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	second, err := f.customers.AddImage(ctx, f.alice, c.ID, "data:image/png;base64,BBBB")
	require.NoError(t, err)

	stored, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 2)
	assert.Equal(t, second.ID, stored.Images[0].ID)
	assert.False(t, stored.Images[0].IsAIGenerated)

	require.NoError(t, f.customers.RemoveImage(ctx, f.alice, c.ID, "unknown"))
	require.NoError(t, f.customers.RemoveImage(ctx, f.alice, c.ID, first.ID))
	assert.Equal(t, []string{first.URL}, f.images.released)

	require.NoError(t, f.customers.Delete(ctx, f.alice, c.ID))
	assert.Equal(t, []string{first.URL, second.URL}, f.images.released)
	require.NoError(t, f.customers.Delete(ctx, f.alice, c.ID))
}

func TestCustomerService_SaveIngestsNewDataURIs(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c, err := f.customers.Save(ctx, f.alice, domain.Customer{
		Name:     "Lin",
		Platform: domain.PlatformXianyu,
		Images:   []domain.ImageAsset{{URL: "data:image/png;base64,AAAA"}, {URL: "https://elsewhere/x.png"}},
	})
	require.NoError(t, err)
	require.Len(t, c.Images, 2)
	assert.Contains(t, c.Images[0].URL, "https://cdn.test/customers/"+c.ID)
	assert.Equal(t, "https://elsewhere/x.png", c.Images[1].URL)
	assert.Len(t, f.images.ingested, 1)

	f.images.fail = fmt.Errorf("bad image: %w", domain.ErrInvalidInput)
	_, err = f.customers.Save(ctx, f.alice, domain.Customer{
		Name: "Broken", Platform: domain.PlatformXianyu,
		Images: []domain.ImageAsset{{URL: "data:image/png;base64,!!!!"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCustomerService_LinkingAnotherCustomersImageIsRejected(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	ac := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)
	img, err := f.customers.AddImage(ctx, f.alice, ac.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)

	_, err = f.customers.Save(ctx, f.bob, domain.Customer{
		Name:     "Wu",
		Platform: domain.PlatformXianyu,
		Images:   []domain.ImageAsset{{URL: img.URL}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bc := f.saveAs(t, f.bob, "Wu", domain.PlatformXianyu)
	bc.Images = []domain.ImageAsset{{URL: "data:image/png;base64,BBBB"}, {URL: img.URL}}
	_, err = f.customers.Save(ctx, f.bob, bc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stored, err := f.store.GetCustomer(ctx, bc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Images)

	require.NoError(t, f.customers.Delete(ctx, f.bob, bc.ID))
	assert.NotContains(t, f.images.released, img.URL)
	assert.Zero(t, f.images.foreignReleases)

	kept, err := f.store.GetCustomer(ctx, ac.ID)
	require.NoError(t, err)
	require.Len(t, kept.Images, 1)
	assert.Equal(t, img.URL, kept.Images[0].URL)
}

func TestCustomerService_OwnImageURLCanBeRelinked(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)
	img, err := f.customers.AddImage(ctx, f.alice, c.ID, "data:image/png;base64,AAAA")
	require.NoError(t, err)

	c.Images = []domain.ImageAsset{{URL: img.URL}}
	saved, err := f.customers.Save(ctx, f.alice, c)
	require.NoError(t, err)
	require.Len(t, saved.Images, 1)
	assert.Equal(t, img.URL, saved.Images[0].URL)
	assert.NotEqual(t, img.ID, saved.Images[0].ID)
	assert.Empty(t, f.images.released, "a URL still on the record is not released")
}

func TestCustomerService_AddCopyRequiresContent(t *testing.T) {
	f := setupFixture(t)
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXianyu)

	_, err := f.customers.AddCopy(context.Background(), f.alice, c.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.customers.AddCopy(context.Background(), f.alice, "missing", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerationService_GenerateCopy(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)

	gen := &fakeGenerator{text: "Spring picks for you"}
	svc := NewGenerationService(f.customers, gen)

	cw, err := svc.GenerateCopy(ctx, f.alice, c.ID, "spring sale", genai.ModelDeepSeek)
	require.NoError(t, err)
	assert.True(t, cw.IsAIGenerated)
	assert.Equal(t, "DeepSeek", cw.ModelUsed)

	stored, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Copywritings, 1)
	assert.Equal(t, "Spring picks for you", stored.Copywritings[0].Content)
}

func TestGenerationService_FailureLeavesCustomerUntouched(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)
	before := f.store.writes.Load()

	gen := &fakeGenerator{err: domain.ErrServiceUnavailable}
	svc := NewGenerationService(f.customers, gen)

	_, err := svc.GenerateCopy(ctx, f.alice, c.ID, "spring", genai.ModelGemini)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	_, err = svc.GenerateImage(ctx, f.alice, c.ID, "spring", genai.StyleJimeng)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	assert.Equal(t, before, f.store.writes.Load())
}

func TestGenerationService_ChecksAccessBeforeCalling(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)

	gen := &fakeGenerator{text: "x", image: "data:image/png;base64,AAAA"}
	svc := NewGenerationService(f.customers, gen)

	_, err := svc.GenerateCopy(ctx, f.bob, c.ID, "spring", genai.ModelGemini)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.GenerateImage(ctx, f.alice, c.ID, " ", genai.StyleDefault)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, gen.calls)
}

func TestGenerationService_DiscardsAfterCancel(t *testing.T) {
	f := setupFixture(t)
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)
	before := f.store.writes.Load()

	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{image: "data:image/png;base64,AAAA", hook: cancel}
	svc := NewGenerationService(f.customers, gen)

	_, err := svc.GenerateImage(ctx, f.alice, c.ID, "spring", genai.StyleDoubao)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, before, f.store.writes.Load())
	assert.Empty(t, f.images.ingested)
}

func TestGenerationService_GenerateImage(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	c := f.saveAs(t, f.alice, "Lin", domain.PlatformXiaohongshu)

	gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
	svc := NewGenerationService(f.customers, gen)

	img, err := svc.GenerateImage(ctx, f.alice, c.ID, "spring", genai.StyleDoubao)
	require.NoError(t, err)
	assert.True(t, img.IsAIGenerated)
	assert.Contains(t, img.URL, "https://cdn.test/")

	stored, err := f.store.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Images, 1)
	assert.Equal(t, img.ID, stored.Images[0].ID)
}

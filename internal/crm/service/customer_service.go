// Package service orchestrates CRM operations: every mutation checks the
// access policy before touching the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/crm/policy"
	"github.com/hongyu-crm/crm-backend/internal/crm/repository"
	"github.com/hongyu-crm/crm-backend/internal/crm/status"
	"github.com/rs/zerolog"
)

// ImageStore turns image data URIs into asset URLs and releases them.
// Stored blobs belong to the customer they were ingested for.
type ImageStore interface {
	Ingest(ctx context.Context, customerID, dataURI string) (string, error)
	// Owner reports the customer a stored URL belongs to; ok is false for
	// URLs the store does not manage.
	Owner(url string) (customerID string, ok bool)
	// Release deletes url only when it belongs to customerID.
	Release(ctx context.Context, customerID, url string)
}

// ListQuery narrows the visible customers. Zero values mean no filter.
type ListQuery struct {
	Platform domain.Platform
	Search   string
}

// CustomerView is a customer annotated with its derived badges.
type CustomerView struct {
	domain.Customer
	Badges status.Badges `json:"badges"`
}

type CustomerService struct {
	store  repository.Store
	images ImageStore
	clock  status.Clock
}

func NewCustomerService(store repository.Store, images ImageStore, clock status.Clock) *CustomerService {
	if clock == nil {
		clock = status.SystemClock{}
	}
	return &CustomerService{store: store, images: images, clock: clock}
}

// List returns the actor's visible customers, least recently tracked first.
func (s *CustomerService) List(ctx context.Context, actor domain.User, q ListQuery) ([]CustomerView, error) {
	if q.Platform != "" && !q.Platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q: %w", q.Platform, domain.ErrInvalidInput)
	}

	all, err := s.store.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	visible := policy.VisibleCustomers(actor, all)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := visible[:0]
	for _, c := range visible {
		if q.Platform != "" && c.Platform != q.Platform {
			continue
		}
		if search != "" && !matches(c, search) {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].LastTrackedDate.Before(filtered[j].LastTrackedDate)
	})

	now := s.clock.Now()
	out := make([]CustomerView, 0, len(filtered))
	for _, c := range filtered {
		out = append(out, CustomerView{Customer: c, Badges: status.Derive(c, now)})
	}
	return out, nil
}

func matches(c domain.Customer, needle string) bool {
	return strings.Contains(strings.ToLower(c.Name), needle) ||
		strings.Contains(strings.ToLower(c.ContactInfo), needle) ||
		strings.Contains(strings.ToLower(c.Notes), needle)
}

// Get returns one customer. Records the actor cannot see are reported as
// not found.
func (s *CustomerService) Get(ctx context.Context, actor domain.User, id string) (CustomerView, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return CustomerView{}, err
	}
	if !policy.CanSee(actor, c) {
		return CustomerView{}, domain.ErrNotFound
	}
	return CustomerView{Customer: c, Badges: status.Derive(c, s.clock.Now())}, nil
}

// Save overwrites the whole record. New image data URIs are ingested.
func (s *CustomerService) Save(ctx context.Context, actor domain.User, c domain.Customer) (domain.Customer, error) {
	return s.save(ctx, actor, c, true)
}

// Delete removes a customer. Deleting an absent id is a no-op.
func (s *CustomerService) Delete(ctx context.Context, actor domain.User, id string) error {
	existing, err := s.store.GetCustomer(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !policy.CanWrite(actor, existing) {
		return domain.ErrUnauthorized
	}

	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	for _, img := range existing.Images {
		s.releaseImage(ctx, id, img.URL)
	}

	zerolog.Ctx(ctx).Info().Str("customer_id", id).Str("actor_id", actor.ID).Msg("customer deleted")
	return nil
}

// AddImage uploads an image and prepends it to the customer's gallery.
func (s *CustomerService) AddImage(ctx context.Context, actor domain.User, id, dataURI string) (domain.ImageAsset, error) {
	if _, err := s.loadForWrite(ctx, actor, id); err != nil {
		return domain.ImageAsset{}, err
	}
	url, err := s.ingest(ctx, id, dataURI)
	if err != nil {
		return domain.ImageAsset{}, err
	}

	asset := domain.ImageAsset{ID: uuid.NewString(), URL: url, CreatedAt: s.clock.Now()}
	if err := s.prependImage(ctx, actor, id, asset); err != nil {
		s.releaseImage(ctx, id, url)
		return domain.ImageAsset{}, err
	}
	return asset, nil
}

// AddCopy prepends a hand-written piece of copy.
func (s *CustomerService) AddCopy(ctx context.Context, actor domain.User, id, content string) (domain.Copywriting, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Copywriting{}, fmt.Errorf("content is required: %w", domain.ErrInvalidInput)
	}
	cw := domain.Copywriting{ID: uuid.NewString(), Content: content, CreatedAt: s.clock.Now()}
	if err := s.prependCopy(ctx, actor, id, cw); err != nil {
		return domain.Copywriting{}, err
	}
	return cw, nil
}

// RemoveImage drops one image. An unknown asset id is a no-op.
func (s *CustomerService) RemoveImage(ctx context.Context, actor domain.User, id, assetID string) error {
	c, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	kept := make([]domain.ImageAsset, 0, len(c.Images))
	for _, img := range c.Images {
		if img.ID != assetID {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(c.Images) {
		return nil
	}
	c.Images = kept
	_, err = s.save(ctx, actor, c, false)
	return err
}

// RemoveCopy drops one piece of copy. An unknown asset id is a no-op.
func (s *CustomerService) RemoveCopy(ctx context.Context, actor domain.User, id, assetID string) error {
	c, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	kept := make([]domain.Copywriting, 0, len(c.Copywritings))
	for _, cw := range c.Copywritings {
		if cw.ID != assetID {
			kept = append(kept, cw)
		}
	}
	if len(kept) == len(c.Copywritings) {
		return nil
	}
	c.Copywritings = kept
	_, err = s.save(ctx, actor, c, false)
	return err
}

func (s *CustomerService) prependImage(ctx context.Context, actor domain.User, id string, asset domain.ImageAsset) error {
	c, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	c.Images = append([]domain.ImageAsset{asset}, c.Images...)
	_, err = s.save(ctx, actor, c, false)
	return err
}

func (s *CustomerService) prependCopy(ctx context.Context, actor domain.User, id string, cw domain.Copywriting) error {
	c, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	c.Copywritings = append([]domain.Copywriting{cw}, c.Copywritings...)
	_, err = s.save(ctx, actor, c, false)
	return err
}

// loadForWrite fetches a record the actor intends to modify.
func (s *CustomerService) loadForWrite(ctx context.Context, actor domain.User, id string) (domain.Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if !policy.CanWrite(actor, c) {
		return domain.Customer{}, domain.ErrUnauthorized
	}
	return c, nil
}

func (s *CustomerService) save(ctx context.Context, actor domain.User, c domain.Customer, ingestNew bool) (domain.Customer, error) {
	c = c.Clone()
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.Customer{}, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if !c.Platform.Valid() {
		return domain.Customer{}, fmt.Errorf("unknown platform %q: %w", c.Platform, domain.ErrInvalidInput)
	}

	var existing *domain.Customer
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else {
		stored, err := s.store.GetCustomer(ctx, c.ID)
		switch {
		case err == nil:
			if !policy.CanWrite(actor, stored) {
				return domain.Customer{}, domain.ErrUnauthorized
			}
			existing = &stored
		case errors.Is(err, domain.ErrNotFound):
		default:
			return domain.Customer{}, err
		}
	}

	if c.CreatorID == "" {
		if existing != nil {
			c.CreatorID = existing.CreatorID
		} else {
			c.CreatorID = actor.ID
		}
	}
	if !policy.CanWrite(actor, c) {
		return domain.Customer{}, domain.ErrUnauthorized
	}

	now := s.clock.Now()
	c.Images, c.Copywritings = preserveAssets(c, existing, now)

	var uploaded []string
	if ingestNew {
		for i, img := range c.Images {
			if existing != nil && hasImage(existing.Images, img.ID) {
				continue
			}
			if !strings.HasPrefix(img.URL, "data:") {
				if err := s.checkImageOwner(c.ID, img.URL); err != nil {
					s.releaseAll(ctx, c.ID, uploaded)
					return domain.Customer{}, err
				}
				continue
			}
			url, err := s.ingest(ctx, c.ID, img.URL)
			if err != nil {
				s.releaseAll(ctx, c.ID, uploaded)
				return domain.Customer{}, err
			}
			if url != img.URL {
				uploaded = append(uploaded, url)
			}
			c.Images[i].URL = url
		}
	}

	c.LastTrackedDate = now
	if err := s.store.UpsertCustomer(ctx, c); err != nil {
		s.releaseAll(ctx, c.ID, uploaded)
		return domain.Customer{}, err
	}

	if existing != nil {
		for _, img := range existing.Images {
			if !hasImage(c.Images, img.ID) && !hasImageURL(c.Images, img.URL) {
				s.releaseImage(ctx, c.ID, img.URL)
			}
		}
	}
	return c, nil
}

// preserveAssets keeps stored assets immutable: an incoming asset whose id
// is already on the record is replaced by the stored version. New assets get
// an id and creation time if missing.
func preserveAssets(c domain.Customer, existing *domain.Customer, now time.Time) ([]domain.ImageAsset, []domain.Copywriting) {
	storedImages := map[string]domain.ImageAsset{}
	storedCopy := map[string]domain.Copywriting{}
	if existing != nil {
		for _, img := range existing.Images {
			storedImages[img.ID] = img
		}
		for _, cw := range existing.Copywritings {
			storedCopy[cw.ID] = cw
		}
	}

	images := make([]domain.ImageAsset, 0, len(c.Images))
	for _, img := range c.Images {
		if stored, ok := storedImages[img.ID]; ok {
			images = append(images, stored)
			continue
		}
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		if img.CreatedAt.IsZero() {
			img.CreatedAt = now
		}
		images = append(images, img)
	}

	copies := make([]domain.Copywriting, 0, len(c.Copywritings))
	for _, cw := range c.Copywritings {
		if stored, ok := storedCopy[cw.ID]; ok {
			copies = append(copies, stored)
			continue
		}
		if cw.ID == "" {
			cw.ID = uuid.NewString()
		}
		if cw.CreatedAt.IsZero() {
			cw.CreatedAt = now
		}
		copies = append(copies, cw)
	}
	return images, copies
}

func hasImage(images []domain.ImageAsset, id string) bool {
	for _, img := range images {
		if img.ID == id {
			return true
		}
	}
	return false
}

func hasImageURL(images []domain.ImageAsset, url string) bool {
	for _, img := range images {
		if img.URL == url {
			return true
		}
	}
	return false
}

func (s *CustomerService) ingest(ctx context.Context, customerID, dataURI string) (string, error) {
	if s.images == nil {
		return dataURI, nil
	}
	return s.images.Ingest(ctx, customerID, dataURI)
}

// checkImageOwner rejects a linked URL that points at a blob stored for a
// different customer. External URLs pass through.
func (s *CustomerService) checkImageOwner(customerID, url string) error {
	if s.images == nil {
		return nil
	}
	owner, ok := s.images.Owner(url)
	if ok && owner != customerID {
		return fmt.Errorf("image %q belongs to another customer: %w", url, domain.ErrInvalidInput)
	}
	return nil
}

func (s *CustomerService) releaseImage(ctx context.Context, customerID, url string) {
	if s.images != nil {
		s.images.Release(ctx, customerID, url)
	}
}

func (s *CustomerService) releaseAll(ctx context.Context, customerID string, urls []string) {
	for _, u := range urls {
		s.releaseImage(ctx, customerID, u)
	}
}

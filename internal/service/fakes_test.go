package service

import (
	"context"
	"sync"
	"time"

	"storefront-admin/internal/events"
	"storefront-admin/internal/model"
	"storefront-admin/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
)

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter, _, _ int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

// --- channels ---

type fakeChannelRepo struct {
	byID map[uuid.UUID]*model.Channel
}

func newFakeChannelRepo(channels ...model.Channel) *fakeChannelRepo {
	r := &fakeChannelRepo{byID: map[uuid.UUID]*model.Channel{}}
	for i := range channels {
		ch := channels[i]
		r.byID[ch.ID] = &ch
	}
	return r
}

func (r *fakeChannelRepo) Create(_ context.Context, ch *model.Channel) error {
	ch.ID = uuid.New()
	cp := *ch
	r.byID[ch.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) Update(_ context.Context, ch *model.Channel) error {
	cp := *ch
	r.byID[ch.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeChannelRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Channel, error) {
	ch, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeChannelRepo) FindByCode(_ context.Context, code string) (*model.Channel, error) {
	for _, ch := range r.byID {
		if ch.Code == code {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeChannelRepo) List(_ context.Context, _ string, _, _ int) ([]model.Channel, int64, error) {
	out := make([]model.Channel, 0, len(r.byID))
	for _, ch := range r.byID {
		out = append(out, *ch)
	}
	return out, int64(len(out)), nil
}

// --- tax rules ---

type fakeRuleRepo struct {
	rules []model.TaxRule
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *model.TaxRule) error {
	rule.ID = uuid.New()
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *model.TaxRule) error {
	for i := range r.rules {
		if r.rules[i].ID == rule.ID {
			r.rules[i] = *rule
		}
	}
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	kept := r.rules[:0]
	for _, rule := range r.rules {
		if rule.ID != id {
			kept = append(kept, rule)
		}
	}
	r.rules = kept
	return nil
}

func (r *fakeRuleRepo) FindByID(_ context.Context, channelID, id uuid.UUID) (*model.TaxRule, error) {
	for _, rule := range r.rules {
		if rule.ChannelID == channelID && rule.ID == id {
			cp := rule
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRuleRepo) ListByChannel(_ context.Context, channelID uuid.UUID) ([]model.TaxRule, error) {
	var out []model.TaxRule
	for _, rule := range r.rules {
		if rule.ChannelID == channelID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) ListActiveByChannel(ctx context.Context, channelID uuid.UUID) ([]model.TaxRule, error) {
	all, _ := r.ListByChannel(ctx, channelID)
	var out []model.TaxRule
	for _, rule := range all {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

// --- products ---

type fakeProductRepo struct {
	products   map[uuid.UUID]*model.Product
	categories map[uuid.UUID]*model.Category
	variants   map[uuid.UUID]model.ProductVariant
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:   map[uuid.UUID]*model.Product{},
		categories: map[uuid.UUID]*model.Category{},
		variants:   map[uuid.UUID]model.ProductVariant{},
	}
}

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	for i := range p.Variants {
		p.Variants[i].ID = uuid.New()
		p.Variants[i].ProductID = p.ID
		r.variants[p.Variants[i].ID] = p.Variants[i]
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	if cp.CategoryID != nil {
		cp.Category = r.categories[*cp.CategoryID]
	}
	return &cp, nil
}

func (r *fakeProductRepo) List(_ context.Context, _ repository.ProductFilter, _, _ int) ([]model.Product, int64, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) SlugExists(_ context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range r.products {
		if p.Slug == slug && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) SKUExists(_ context.Context, skus []string) ([]string, error) {
	var taken []string
	for _, sku := range skus {
		for _, v := range r.variants {
			if v.SKU == sku {
				taken = append(taken, sku)
			}
		}
	}
	return taken, nil
}

func (r *fakeProductRepo) FindVariantsByIDs(_ context.Context, ids []uuid.UUID) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	for _, id := range ids {
		if v, ok := r.variants[id]; ok {
			v.Product = r.products[v.ProductID]
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) CreateCategory(_ context.Context, c *model.Category) error {
	c.ID = uuid.New()
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r *fakeProductRepo) FindCategoryByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeProductRepo) ListCategories(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeProductRepo) CategorySlugExists(_ context.Context, slug string) (bool, error) {
	for _, c := range r.categories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// --- customers ---

type fakeCustomerRepo struct {
	byID map[uuid.UUID]*model.Customer
}

func newFakeCustomerRepo(customers ...model.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{byID: map[uuid.UUID]*model.Customer{}}
	for i := range customers {
		c := customers[i]
		r.byID[c.ID] = &c
	}
	return r
}

func (r *fakeCustomerRepo) Create(_ context.Context, c *model.Customer) error {
	c.ID = uuid.New()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, c *model.Customer) error {
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) List(_ context.Context, _ repository.CustomerFilter, _, _ int) ([]model.Customer, int64, error) {
	out := make([]model.Customer, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCustomerRepo) ReplaceAddresses(_ context.Context, customerID uuid.UUID, addresses []model.CustomerAddress) error {
	if c, ok := r.byID[customerID]; ok {
		c.Addresses = addresses
	}
	return nil
}

// --- orders ---

type fakeOrderRepo struct {
	byID map[uuid.UUID]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[uuid.UUID]*model.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *model.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	r.byID[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	if o, ok := r.byID[id]; ok {
		o.Status = status
	}
	return nil
}

func (r *fakeOrderRepo) List(_ context.Context, f repository.OrderFilter, _, _ int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range r.byID {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) ListAll(ctx context.Context, f repository.OrderFilter, _ int) ([]model.Order, error) {
	out, _, err := r.List(ctx, f, 1, 0)
	return out, err
}

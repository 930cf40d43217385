package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"backoffice-service/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"gorm.io/gorm"
)

// ---- in-memory category repository ----

type memCategoryRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*models.Category
	deleted map[uuid.UUID]bool
	err     error
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{rows: map[uuid.UUID]*models.Category{}, deleted: map[uuid.UUID]bool{}}
}

func (m *memCategoryRepo) live(id uuid.UUID) (*models.Category, bool) {
	c, ok := m.rows[id]
	if !ok || m.deleted[id] {
		return nil, false
	}
	return c, true
}

func (m *memCategoryRepo) children(parentID uuid.UUID) []models.Category {
	var out []models.Category
	for id, c := range m.rows {
		if !m.deleted[id] && c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	sortCategories(out)
	return out
}

func sortCategories(cs []models.Category) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].SortOrder != cs[j].SortOrder {
			return cs[i].SortOrder < cs[j].SortOrder
		}
		return cs[i].Name < cs[j].Name
	})
}

func (m *memCategoryRepo) Create(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memCategoryRepo) FindByID(_ context.Context, id uuid.UUID, withChildren bool) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.live(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	if withChildren {
		cp.Children = m.children(id)
	}
	return &cp, nil
}

func (m *memCategoryRepo) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.rows {
		if !m.deleted[id] && c.Slug == slug {
			cp := *c
			cp.Children = m.children(id)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCategoryRepo) FindAll(_ context.Context, withChildren bool) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Category
	for id, c := range m.rows {
		if m.deleted[id] {
			continue
		}
		cp := *c
		if withChildren {
			cp.Children = m.children(id)
		}
		out = append(out, cp)
	}
	sortCategories(out)
	return out, nil
}

func (m *memCategoryRepo) SlugExists(_ context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.rows {
		if m.deleted[id] || c.Slug != slug {
			continue
		}
		if excludeID != nil && *excludeID == id {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *memCategoryRepo) FindChildIDs(_ context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, c := range m.children(parentID) {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (m *memCategoryRepo) CountChildren(_ context.Context, parentID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.children(parentID))), nil
}

func (m *memCategoryRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.live(id)
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			c.Name = v.(string)
		case "slug":
			c.Slug = v.(string)
		case "description":
			d := v.(string)
			c.Description = &d
		case "parent_id":
			if v == nil {
				c.ParentID = nil
			} else {
				p := v.(uuid.UUID)
				c.ParentID = &p
			}
		case "is_active":
			c.IsActive = v.(bool)
		case "sort_order":
			c.SortOrder = v.(int)
		}
	}
	return nil
}

func (m *memCategoryRepo) SoftDelete(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(id); !ok {
		return 0, nil
	}
	m.deleted[id] = true
	return 1, nil
}

// ---- product repository ----

type memProductRepo struct {
	mu         sync.Mutex
	byCategory map[uuid.UUID]int64
	rows       map[uuid.UUID]*models.Product
	listErr    error
	lastPage   int
	lastLimit  int
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{byCategory: map[uuid.UUID]int64{}, rows: map[uuid.UUID]*models.Product{}}
}

func (m *memProductRepo) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.SKU == p.SKU {
			return gorm.ErrDuplicatedKey
		}
	}
	p.ID = uuid.New()
	cp := *p
	m.rows[p.ID] = &cp
	if p.CategoryID != nil {
		m.byCategory[*p.CategoryID]++
	}
	return nil
}

func (m *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProductRepo) List(_ context.Context, _ models.ProductFilter, page, perPage int) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPage, m.lastLimit = page, perPage
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.Product
	for _, p := range m.rows {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *memProductRepo) SoftDelete(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	if p.CategoryID != nil {
		m.byCategory[*p.CategoryID]--
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memProductRepo) CountByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byCategory[categoryID], nil
}

func (m *memProductRepo) CountByCategories(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]int64{}
	for _, id := range ids {
		if n := m.byCategory[id]; n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// ---- payment repository ----

type memPaymentRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.Payment
	createErr error
	failNext  int // number of upcoming inserts that fail
	updates   int
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{rows: map[uuid.UUID]*models.Payment{}}
}

func (m *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.failNext > 0 {
		m.failNext--
		return errors.New("connection reset by peer")
	}
	if _, ok := m.rows[p.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByTransactionID(_ context.Context, tx string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.TransactionID != nil && *p.TransactionID == tx {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPaymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.rows {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) Update(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

// seed stores a pending payment under transactionID and returns it.
func (m *memPaymentRepo) seed(method models.PaymentMethod, transactionID string) *models.Payment {
	tx := transactionID
	p := &models.Payment{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		UserID:        uuid.New(),
		Method:        method,
		Currency:      "usd",
		Status:        models.PaymentStatusPending,
		TransactionID: &tx,
		Provider:      "stripe",
	}
	_ = m.Create(context.Background(), p)
	return p
}

// ---- fake Stripe gateway ----

var errNoSuchObject = errors.New("resource_missing")

type fakeGateway struct {
	intents  map[string]*stripe.PaymentIntent
	sessions map[string]*stripe.CheckoutSession

	sessionParams *stripe.CheckoutSessionParams
	intentParams  *stripe.PaymentIntentParams
	createErr     error

	refunded []string
	canceled []string
	expired  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*stripe.PaymentIntent{}, sessions: map[string]*stripe.CheckoutSession{}}
}

func (g *fakeGateway) NewCheckoutSession(_ context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.sessionParams = params
	if g.createErr != nil {
		return nil, g.createErr
	}
	s := &stripe.CheckoutSession{ID: "cs_test_new", URL: "https://checkout.stripe.com/c/pay/cs_test_new", Status: stripe.CheckoutSessionStatusOpen}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	if s, ok := g.sessions[id]; ok {
		return s, nil
	}
	return nil, errNoSuchObject
}

func (g *fakeGateway) ExpireCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	s, ok := g.sessions[id]
	if !ok {
		return nil, errNoSuchObject
	}
	g.expired = append(g.expired, id)
	s.Status = stripe.CheckoutSessionStatusExpired
	return s, nil
}

func (g *fakeGateway) NewPaymentIntent(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	g.intentParams = params
	if g.createErr != nil {
		return nil, g.createErr
	}
	pi := &stripe.PaymentIntent{ID: "pi_test_new", ClientSecret: "pi_test_new_secret_abc", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}
	g.intents[pi.ID] = pi
	return pi, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	if pi, ok := g.intents[id]; ok {
		return pi, nil
	}
	return nil, errNoSuchObject
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.canceled = append(g.canceled, id)
	pi := &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}
	g.intents[id] = pi
	return pi, nil
}

func (g *fakeGateway) RefundPaymentIntent(_ context.Context, id string) (*stripe.Refund, error) {
	g.refunded = append(g.refunded, id)
	return &stripe.Refund{ID: "re_" + id, Status: stripe.RefundStatusSucceeded}, nil
}

// ---- recording collaborators ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.PaymentEvent
	err    error
}

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, ev models.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordingCache struct {
	mu          sync.Mutex
	version     int64
	lists       map[string][]models.Category
	setVersions []int64
	invalidated int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{version: 1, lists: map[string][]models.Category{}}
}

func (c *recordingCache) slot(version int64, key string) string {
	return fmt.Sprintf("%d:%s", version, key)
}

func (c *recordingCache) GetList(_ context.Context, key string) ([]models.Category, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lists[c.slot(c.version, key)]
	return v, c.version, ok
}

func (c *recordingCache) SetList(_ context.Context, version int64, key string, cs []models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setVersions = append(c.setVersions, version)
	c.lists[c.slot(version, key)] = cs
}

func (c *recordingCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.version++
}

package controllers_test

import (
	"context"

	"backoffice-service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock CategoryService ---

type mockCategoryService struct {
	createFn     func(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	findAllFn    func(ctx context.Context, children, counts bool) ([]models.Category, error)
	findOneFn    func(ctx context.Context, id uuid.UUID) (*models.Category, error)
	findBySlugFn func(ctx context.Context, slug string) (*models.Category, error)
	updateFn     func(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error)
	removeFn     func(ctx context.Context, id uuid.UUID) error
	bulkRemoveFn func(ctx context.Context, ids []uuid.UUID) error
}

func (m *mockCategoryService) Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	return m.createFn(ctx, req)
}
func (m *mockCategoryService) FindAll(ctx context.Context, children, counts bool) ([]models.Category, error) {
	return m.findAllFn(ctx, children, counts)
}
func (m *mockCategoryService) FindOne(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return m.findOneFn(ctx, id)
}
func (m *mockCategoryService) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return m.findBySlugFn(ctx, slug)
}
func (m *mockCategoryService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error) {
	return m.updateFn(ctx, id, req)
}
func (m *mockCategoryService) Remove(ctx context.Context, id uuid.UUID) error {
	return m.removeFn(ctx, id)
}
func (m *mockCategoryService) BulkRemove(ctx context.Context, ids []uuid.UUID) error {
	return m.bulkRemoveFn(ctx, ids)
}

// --- Mock ProductService ---

type mockProductService struct {
	createFn     func(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	listFn       func(ctx context.Context, f models.ProductFilter, page, perPage int) (*models.ProductPage, error)
	findOneFn    func(ctx context.Context, id uuid.UUID) (*models.Product, error)
	removeFn     func(ctx context.Context, id uuid.UUID) error
	bulkRemoveFn func(ctx context.Context, ids []uuid.UUID) error
}

func (m *mockProductService) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	return m.createFn(ctx, req)
}
func (m *mockProductService) List(ctx context.Context, f models.ProductFilter, page, perPage int) (*models.ProductPage, error) {
	return m.listFn(ctx, f, page, perPage)
}
func (m *mockProductService) FindOne(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return m.findOneFn(ctx, id)
}
func (m *mockProductService) Remove(ctx context.Context, id uuid.UUID) error {
	return m.removeFn(ctx, id)
}
func (m *mockProductService) BulkRemove(ctx context.Context, ids []uuid.UUID) error {
	return m.bulkRemoveFn(ctx, ids)
}

// --- Mock PaymentService ---

type mockPaymentService struct {
	createFn  func(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error)
	confirmFn func(ctx context.Context, method, txID string) (*models.Payment, error)
	cancelFn  func(ctx context.Context, method, txID string) (*models.Payment, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	getByTxFn func(ctx context.Context, txID string) (*models.Payment, error)
	listFn    func(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error) {
	return m.createFn(ctx, req)
}
func (m *mockPaymentService) ConfirmPayment(ctx context.Context, method, txID string) (*models.Payment, error) {
	return m.confirmFn(ctx, method, txID)
}
func (m *mockPaymentService) CancelPayment(ctx context.Context, method, txID string) (*models.Payment, error) {
	return m.cancelFn(ctx, method, txID)
}
func (m *mockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return m.getFn(ctx, id)
}
func (m *mockPaymentService) GetPaymentByTransaction(ctx context.Context, txID string) (*models.Payment, error) {
	return m.getByTxFn(ctx, txID)
}
func (m *mockPaymentService) ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return m.listFn(ctx, orderID)
}

// --- Fake webhook verifier ---

type fakeVerifier struct {
	event stripe.Event
	err   error
	sig   string
}

func (v *fakeVerifier) ConstructWebhookEvent(_ []byte, signature string) (stripe.Event, error) {
	v.sig = signature
	return v.event, v.err
}

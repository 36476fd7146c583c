package service_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	outboxDomain "github.com/sakashimaa/marketplace/pkg/outbox/domain"
)

// fakeTx satisfies pgx.Tx so services can be exercised without a database.
// Only commit/rollback bookkeeping is real.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type fakePool struct {
	tx *fakeTx
}

func newFakePool() *fakePool {
	return &fakePool{tx: &fakeTx{}}
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.tx = &fakeTx{}
	return p.tx, nil
}

type releaseCall struct {
	productID int64
	quantity  int32
}

type fakeProductRepo struct {
	products map[int64]*domain.Product
	reserved map[int64]int64
	released []releaseCall

	reserveErr map[int64]error
	releaseErr map[int64]error

	ratingUpdates []int64
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	repo := &fakeProductRepo{
		products:   make(map[int64]*domain.Product),
		reserved:   make(map[int64]int64),
		reserveErr: make(map[int64]error),
		releaseErr: make(map[int64]error),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) Create(ctx context.Context, product *domain.Product) (int64, error) {
	product.ID = int64(len(r.products) + 1)
	r.products[product.ID] = product
	return product.ID, nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (r *fakeProductRepo) GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]*domain.Product, error) {
	res := make(map[int64]*domain.Product)
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			res[id] = product
		}
	}
	return res, nil
}

func (r *fakeProductRepo) List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error) {
	var res []domain.Product
	for _, p := range r.products {
		res = append(res, *p)
	}
	return res, int64(len(res)), nil
}

func (r *fakeProductRepo) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error {
	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	return nil
}

func (r *fakeProductRepo) SetStatus(ctx context.Context, id int64, status domain.ProductStatus) error {
	product, ok := r.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Status = status
	return nil
}

func (r *fakeProductRepo) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) ReserveStock(ctx context.Context, tx pgx.Tx, id, quantity int64) (int64, error) {
	if err := r.reserveErr[id]; err != nil {
		return 0, err
	}

	product, ok := r.products[id]
	if !ok {
		return 0, repository.ErrInsufficientStock
	}
	if product.TrackQuantity && !product.AllowBackorder && product.StockQuantity < quantity {
		return 0, repository.ErrInsufficientStock
	}

	r.reserved[id] += quantity
	product.StockQuantity -= quantity
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}
	return product.StockQuantity, nil
}

func (r *fakeProductRepo) ReleaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	if err := r.releaseErr[id]; err != nil {
		return err
	}

	product, ok := r.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}

	r.released = append(r.released, releaseCall{productID: id, quantity: quantity})
	product.StockQuantity += int64(quantity)
	return nil
}

func (r *fakeProductRepo) UpdateRating(ctx context.Context, tx pgx.Tx, productID int64) error {
	r.ratingUpdates = append(r.ratingUpdates, productID)
	return nil
}

type fakeOrderRepo struct {
	orders  map[int64]*domain.Order
	history []domain.StatusChange
	nextID  int64

	// staleStatus overrides what GetByID reports without touching the stored
	// row, simulating a concurrent writer landing between read and update.
	staleStatus map[int64]domain.OrderStatus
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{
		orders:      make(map[int64]*domain.Order),
		nextID:      100,
		staleStatus: make(map[int64]domain.OrderStatus),
	}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *fakeOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	r.nextID++
	order.ID = r.nextID
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	res := *order
	if status, ok := r.staleStatus[id]; ok {
		res.Status = status
	}
	return &res, nil
}

func (r *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	var res []domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID && (status == "" || o.Status == status) {
			res = append(res, *o)
		}
	}
	return res, int64(len(res)), nil
}

func (r *fakeOrderRepo) ListByVendor(ctx context.Context, vendorID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	var res []domain.Order
	for _, o := range r.orders {
		if o.VendorID == vendorID && (status == "" || o.Status == status) {
			res = append(res, *o)
		}
	}
	return res, int64(len(res)), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok || order.Status.Terminal() {
		return repository.ErrOrderStateConflict
	}
	order.Status = status
	return nil
}

func (r *fakeOrderRepo) SetTracking(ctx context.Context, tx pgx.Tx, orderID int64, trackingNumber, carrier string) error {
	order, ok := r.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.TrackingNumber = trackingNumber
	order.Carrier = carrier
	return nil
}

func (r *fakeOrderRepo) SetCancelled(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error {
	order, ok := r.orders[orderID]
	if !ok || !order.CanBeCancelled() {
		return repository.ErrOrderStateConflict
	}
	order.Status = domain.OrderStatusCancelled
	order.CancelReason = reason
	return nil
}

func (r *fakeOrderRepo) AppendStatusHistory(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error {
	change.ID = int64(len(r.history) + 1)
	r.history = append(r.history, *change)
	return nil
}

type fakeVendorRepo struct {
	vendors map[int64]*domain.Vendor

	ratingUpdates []int64
}

func newFakeVendorRepo(vendors ...*domain.Vendor) *fakeVendorRepo {
	repo := &fakeVendorRepo{vendors: make(map[int64]*domain.Vendor)}
	for _, v := range vendors {
		repo.vendors[v.ID] = v
	}
	return repo
}

func (r *fakeVendorRepo) Create(ctx context.Context, vendor *domain.Vendor) (int64, error) {
	for _, v := range r.vendors {
		if v.UserID == vendor.UserID {
			return 0, repository.ErrVendorExists
		}
	}
	vendor.ID = int64(len(r.vendors) + 1)
	r.vendors[vendor.ID] = vendor
	return vendor.ID, nil
}

func (r *fakeVendorRepo) GetByID(ctx context.Context, id int64) (*domain.Vendor, error) {
	vendor, ok := r.vendors[id]
	if !ok {
		return nil, repository.ErrVendorNotFound
	}
	return vendor, nil
}

func (r *fakeVendorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Vendor, error) {
	for _, v := range r.vendors {
		if v.UserID == userID {
			return v, nil
		}
	}
	return nil, repository.ErrVendorNotFound
}

func (r *fakeVendorRepo) SetStatus(ctx context.Context, id int64, status domain.VendorStatus) error {
	vendor, ok := r.vendors[id]
	if !ok {
		return repository.ErrVendorNotFound
	}
	vendor.Status = status
	return nil
}

func (r *fakeVendorRepo) UpdateRating(ctx context.Context, tx pgx.Tx, vendorID int64) error {
	r.ratingUpdates = append(r.ratingUpdates, vendorID)
	return nil
}

type fakeOutboxRepo struct {
	saved []*outboxDomain.OutboxEvent
}

func (r *fakeOutboxRepo) SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *outboxDomain.OutboxEvent) error {
	event.Id = int64(len(r.saved) + 1)
	r.saved = append(r.saved, event)
	return nil
}

func (r *fakeOutboxRepo) GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*outboxDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkEventUnpublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	return nil
}

func (r *fakeOutboxRepo) MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	return nil
}

func (r *fakeOutboxRepo) MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	return nil
}

type fakeReviewRepo struct {
	reviews map[int64]*domain.Review
	nextID  int64
}

func newFakeReviewRepo(reviews ...*domain.Review) *fakeReviewRepo {
	repo := &fakeReviewRepo{reviews: make(map[int64]*domain.Review)}
	for _, rv := range reviews {
		repo.reviews[rv.ID] = rv
		if rv.ID > repo.nextID {
			repo.nextID = rv.ID
		}
	}
	return repo
}

func (r *fakeReviewRepo) Create(ctx context.Context, tx pgx.Tx, review *domain.Review) (int64, error) {
	r.nextID++
	review.ID = r.nextID
	r.reviews[review.ID] = review
	return review.ID, nil
}

func (r *fakeReviewRepo) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	review, ok := r.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	return review, nil
}

func (r *fakeReviewRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, ok := r.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(r.reviews, id)
	return nil
}

func (r *fakeReviewRepo) ListByProduct(ctx context.Context, productID, limit, offset int64) ([]domain.Review, int64, error) {
	var res []domain.Review
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			res = append(res, *rv)
		}
	}
	return res, int64(len(res)), nil
}

func testAddress() domain.Address {
	return domain.Address{
		FullName:   "Alex Doe",
		Line1:      "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func testProduct(id, vendorID, priceCents, stock int64) *domain.Product {
	return &domain.Product{
		ID:            id,
		VendorID:      vendorID,
		Name:          fmt.Sprintf("Product %d", id),
		PriceCents:    priceCents,
		StockQuantity: stock,
		TrackQuantity: true,
		Status:        domain.ProductStatusActive,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hncstore/backend/internal/cache"
	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/store"
)

// ErrForbidden marks a request whose actor lacks the required role. Handlers
// match it with errors.Is the same way they match the store sentinels.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo          store.Repository
	reports       cache.ReportCache
	financialsTTL time.Duration
}

func New(repo store.Repository, reports cache.ReportCache, financialsTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if financialsTTL <= 0 {
		financialsTTL = time.Minute
	}

	return &Service{
		repo:          repo,
		reports:       reports,
		financialsTTL: financialsTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, store.ErrValidation
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.ProductType = strings.TrimSpace(req.ProductType)
	req.SupplierID = strings.TrimSpace(req.SupplierID)

	if req.Name == "" || allDigits(req.Name) {
		return domain.Product{}, store.ErrValidation
	}
	if req.Quantity < 1 || req.CapitalCents < 0 {
		return domain.Product{}, store.ErrValidation
	}

	received, err := parseDate(req.DateReceived)
	if err != nil {
		return domain.Product{}, store.ErrValidation
	}
	expiry, err := parseOptionalDate(req.ExpirationDate)
	if err != nil {
		return domain.Product{}, store.ErrValidation
	}
	if req.LifespanDays < 0 {
		return domain.Product{}, store.ErrValidation
	}

	product := domain.Product{
		Name:           req.Name,
		Category:       req.Category,
		ProductType:    req.ProductType,
		Quantity:       req.Quantity,
		CapitalCents:   req.CapitalCents,
		SupplierID:     req.SupplierID,
		DateReceived:   received,
		ExpirationDate: expiry,
		LifespanDays:   req.LifespanDays,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrValidation
	}
	if upd.Name != nil && allDigits(strings.TrimSpace(*upd.Name)) {
		return domain.Product{}, store.ErrValidation
	}

	updated, err := s.repo.UpdateProduct(ctx, id, upd)
	if err != nil {
		return domain.Product{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Supplier{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)

	if req.Name == "" || req.ContactPerson == "" || req.Address == "" {
		return domain.Supplier{}, store.ErrValidation
	}
	if req.ContactNumber == "" || !allDigits(req.ContactNumber) {
		return domain.Supplier{}, store.ErrValidation
	}
	if !plausibleEmail(req.Email) {
		return domain.Supplier{}, store.ErrValidation
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
		Address:       req.Address,
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return *created, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, upd domain.SupplierUpdate) (domain.Supplier, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Supplier{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Supplier{}, store.ErrValidation
	}
	if upd.ContactNumber != nil && !allDigits(strings.TrimSpace(*upd.ContactNumber)) {
		return domain.Supplier{}, store.ErrValidation
	}
	if upd.Email != nil && !plausibleEmail(strings.TrimSpace(*upd.Email)) {
		return domain.Supplier{}, store.ErrValidation
	}

	updated, err := s.repo.UpdateSupplier(ctx, id, upd)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	return s.repo.DeleteSupplier(ctx, id)
}

// ResolveCustomer finds the customer matching the exact (name, contact,
// address) triple, inserting a new record when no match exists. Calling it
// twice with identical input returns the same identifier.
func (s *Service) ResolveCustomer(ctx context.Context, input domain.CustomerInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	contact := strings.TrimSpace(input.Contact)
	address := strings.TrimSpace(input.Address)
	if name == "" {
		return "", store.ErrValidation
	}

	existing, err := s.repo.FindCustomer(ctx, name, contact, address)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    name,
		Contact: contact,
		Address: address,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.Order{}, store.ErrValidation
	}

	orderedAt := time.Now().UTC()
	if strings.TrimSpace(req.OrderedAt) != "" {
		parsed, err := time.Parse(time.RFC3339, req.OrderedAt)
		if err != nil {
			return domain.Order{}, store.ErrValidation
		}
		orderedAt = parsed.UTC()
	}

	created, err := s.repo.CreateOrder(ctx, domain.Order{
		CustomerID: customerID,
		OrderedAt:  orderedAt,
	})
	if err != nil {
		return domain.Order{}, err
	}
	return *created, nil
}

func (s *Service) OrderDetail(ctx context.Context, orderID string) (domain.Order, []domain.OrderItem, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, nil, store.ErrValidation
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	items, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	return *order, items, nil
}

// AddOrderItem accumulates quantity onto an existing (order, product) line or
// inserts a new one, and returns the resulting total quantity.
func (s *Service) AddOrderItem(ctx context.Context, orderID string, req domain.OrderItemRequest) (int, error) {
	orderID = strings.TrimSpace(orderID)
	productID := strings.TrimSpace(req.ProductID)
	if orderID == "" || productID == "" || req.Quantity < 1 {
		return 0, store.ErrValidation
	}
	return s.repo.AddOrderItem(ctx, orderID, productID, req.Quantity)
}

func (s *Service) Checkout(ctx context.Context, orderID string) (domain.CheckoutResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.CheckoutResult{}, store.ErrValidation
	}

	changes, err := s.repo.CheckoutOrder(ctx, orderID)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	result := domain.CheckoutResult{OrderID: orderID, Changes: changes}
	parts := make([]string, 0, len(changes))
	for _, change := range changes {
		result.TotalItems += change.Requested
		result.TotalCents += change.LineTotalCents
		parts = append(parts, fmt.Sprintf("%s x%d (remaining %d)", change.Name, change.Requested, change.Remaining))
	}
	result.Summary = fmt.Sprintf("order %s checked out: %s", orderID, strings.Join(parts, ", "))

	log.Printf("[service] checkout order=%s lines=%d items=%d total_cents=%d", orderID, len(changes), result.TotalItems, result.TotalCents)
	return result, nil
}

// FinalizeSale runs the whole sale flow for a transient cart: resolve the
// customer, open an order, attach the merged cart lines, and check out. The
// cart itself is never persisted.
func (s *Service) FinalizeSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	var cart domain.Cart
	for _, item := range req.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" || item.Quantity < 1 {
			return domain.SaleResponse{}, store.ErrValidation
		}
		cart.AddLine(productID, item.Quantity)
	}
	if cart.Empty() {
		return domain.SaleResponse{}, store.ErrValidation
	}

	customerID, err := s.ResolveCustomer(ctx, req.Customer)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	order, err := s.repo.CreateOrder(ctx, domain.Order{
		CustomerID: customerID,
		OrderedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	for _, line := range cart.Lines {
		if _, err := s.repo.AddOrderItem(ctx, order.ID, line.ProductID, line.Quantity); err != nil {
			return domain.SaleResponse{}, err
		}
	}

	result, err := s.Checkout(ctx, order.ID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	return domain.SaleResponse{CustomerID: customerID, Checkout: result}, nil
}

func (s *Service) ListDeliveries(ctx context.Context) ([]domain.Delivery, error) {
	return s.repo.ListDeliveries(ctx)
}

func (s *Service) GetDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, store.ErrValidation
	}
	return s.repo.GetDelivery(ctx, id)
}

// CreateDelivery schedules a drop-off. New deliveries always start out
// Pending; the status moves through later updates.
func (s *Service) CreateDelivery(ctx context.Context, req domain.DeliveryCreateRequest) (domain.Delivery, error) {
	req.Product = strings.TrimSpace(req.Product)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Contact = strings.TrimSpace(req.Contact)
	req.CustomerAddress = strings.TrimSpace(req.CustomerAddress)
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	req.Remarks = strings.TrimSpace(req.Remarks)

	if req.Product == "" || req.CustomerName == "" || req.DeliveryAddress == "" {
		return domain.Delivery{}, store.ErrValidation
	}

	deliveryDate, err := parseDate(req.DeliveryDate)
	if err != nil {
		return domain.Delivery{}, store.ErrValidation
	}

	created, err := s.repo.CreateDelivery(ctx, domain.Delivery{
		Product:         req.Product,
		CustomerName:    req.CustomerName,
		Contact:         req.Contact,
		CustomerAddress: req.CustomerAddress,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryDate:    deliveryDate,
		Status:          domain.DeliveryStatusPending,
		Remarks:         req.Remarks,
	})
	if err != nil {
		return domain.Delivery{}, err
	}
	return *created, nil
}

func (s *Service) UpdateDelivery(ctx context.Context, id string, upd domain.DeliveryUpdate) (domain.Delivery, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Delivery{}, store.ErrValidation
	}

	updated, err := s.repo.UpdateDelivery(ctx, id, upd)
	if err != nil {
		return domain.Delivery{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteDelivery(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	return s.repo.DeleteDelivery(ctx, id)
}

// RecomputeFinancials re-derives every month's rollup from the full order
// history and upserts the results. When req names a month, its operating
// expenses and taxes are overridden and persisted; all other months keep
// their stored adjustments. Running it twice without new orders or an
// adjustment stores identical rows.
func (s *Service) RecomputeFinancials(ctx context.Context, req domain.RecomputeRequest) ([]domain.MonthlyFinancial, error) {
	adjusting := req.Month != "" || req.OperatingExpensesCents != nil || req.TaxesCents != nil
	if adjusting {
		if err := requireRole(ctx, domain.RoleAdmin); err != nil {
			return nil, err
		}
		if _, err := time.Parse("2006-01", req.Month); err != nil {
			return nil, store.ErrValidation
		}
		if req.OperatingExpensesCents != nil && *req.OperatingExpensesCents < 0 {
			return nil, store.ErrValidation
		}
		if req.TaxesCents != nil && *req.TaxesCents < 0 {
			return nil, store.ErrValidation
		}
	}

	months, err := s.repo.AggregateMonthlySales(ctx)
	if err != nil {
		return nil, err
	}

	for _, month := range months {
		expenses, taxes := int64(0), int64(0)
		stored, err := s.repo.GetMonthlyFinancial(ctx, month.Month)
		if err == nil {
			expenses = stored.OperatingExpensesCents
			taxes = stored.TaxesCents
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		if adjusting && req.Month == month.Month {
			if req.OperatingExpensesCents != nil {
				expenses = *req.OperatingExpensesCents
			}
			if req.TaxesCents != nil {
				taxes = *req.TaxesCents
			}
		}

		gross := month.SalesCents - month.CapitalCents
		operating := gross - expenses
		net := operating - taxes

		err = s.repo.UpsertMonthlyFinancial(ctx, domain.MonthlyFinancial{
			Month:                  month.Month,
			TotalSalesCents:        month.SalesCents,
			TotalCapitalCents:      month.CapitalCents,
			GrossProfitCents:       gross,
			OperatingExpensesCents: expenses,
			TaxesCents:             taxes,
			OperatingProfitCents:   operating,
			NetProfitCents:         net,
		})
		if err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.ListMonthlyFinancials(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.reports.Set(ctx, cache.MonthlyFinancialsKey, rows, s.financialsTTL); err != nil {
		log.Printf("[service] WARN: failed to cache monthly financials: %v", err)
	}
	return rows, nil
}

// MonthlyFinancials returns the stored rollups, served from the report cache
// when a fresh copy exists.
func (s *Service) MonthlyFinancials(ctx context.Context) ([]domain.MonthlyFinancial, error) {
	if rows, ok, err := s.reports.Get(ctx, cache.MonthlyFinancialsKey); err == nil && ok {
		return rows, nil
	} else if err != nil {
		log.Printf("[service] WARN: report cache read failed: %v", err)
	}

	rows, err := s.repo.ListMonthlyFinancials(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.reports.Set(ctx, cache.MonthlyFinancialsKey, rows, s.financialsTTL); err != nil {
		log.Printf("[service] WARN: failed to cache monthly financials: %v", err)
	}
	return rows, nil
}

func (s *Service) OrdersReport(ctx context.Context) ([]domain.OrderReportRow, error) {
	return s.repo.OrdersReport(ctx)
}

func (s *Service) DailySalesSummary(ctx context.Context) ([]domain.DailySales, error) {
	return s.repo.DailySales(ctx)
}

func requireRole(ctx context.Context, role string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != role {
		return fmt.Errorf("%s role required: %w", role, ErrForbidden)
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// plausibleEmail applies the same loose shape check the back office always
// used: an @ with a dotted domain after it.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"hncstore/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicate         = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyFinalized  = errors.New("order already checked out")
)

// StockShortfallError reports the offending product of a failed checkout. It
// unwraps to ErrInsufficientStock so callers can match with errors.Is.
type StockShortfallError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (%s): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *StockShortfallError) Unwrap() error {
	return ErrInsufficientStock
}

type Repository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, upd domain.SupplierUpdate) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	FindCustomer(ctx context.Context, name string, contact string, address string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	AddOrderItem(ctx context.Context, orderID string, productID string, qty int) (int, error)
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)

	// CheckoutOrder validates stock for every line item of the order and then
	// decrements each product atomically. Either every decrement commits or
	// none do. A committed checkout finalizes the order: further item adds and
	// repeat checkouts fail with ErrAlreadyFinalized.
	CheckoutOrder(ctx context.Context, orderID string) ([]domain.StockChange, error)

	CreateDelivery(ctx context.Context, delivery domain.Delivery) (*domain.Delivery, error)
	GetDelivery(ctx context.Context, id string) (*domain.Delivery, error)
	ListDeliveries(ctx context.Context) ([]domain.Delivery, error)
	UpdateDelivery(ctx context.Context, id string, upd domain.DeliveryUpdate) (*domain.Delivery, error)
	DeleteDelivery(ctx context.Context, id string) error

	AggregateMonthlySales(ctx context.Context) ([]domain.MonthlySales, error)
	GetMonthlyFinancial(ctx context.Context, month string) (*domain.MonthlyFinancial, error)
	UpsertMonthlyFinancial(ctx context.Context, row domain.MonthlyFinancial) error
	ListMonthlyFinancials(ctx context.Context) ([]domain.MonthlyFinancial, error)

	OrdersReport(ctx context.Context) ([]domain.OrderReportRow, error)
	DailySales(ctx context.Context) ([]domain.DailySales, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/store"
)

func TestCreateProductRejectsDuplicate(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{
		Name:         "Portland Cement 40kg",
		Category:     "Construction",
		ProductType:  "Cement",
		Quantity:     10,
		CapitalCents: 24500,
		SupplierID:   "sup-solid-cement",
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestDeleteProductReferencedByOrder(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Buyer"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	order, err := s.CreateOrder(ctx, domain.Order{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.AddOrderItem(ctx, order.ID, "prod-gi-wire", 1); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	if err := s.DeleteProduct(ctx, "prod-gi-wire"); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for referenced product, got %v", err)
	}
	if err := s.DeleteProduct(ctx, "prod-paint-white"); err != nil {
		t.Fatalf("expected unreferenced delete to succeed, got %v", err)
	}
}

func TestCheckoutOrderRollsBackOnShortfall(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Bulk Buyer"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	order, err := s.CreateOrder(ctx, domain.Order{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.AddOrderItem(ctx, order.ID, "prod-cement-40kg", 80); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := s.AddOrderItem(ctx, order.ID, "prod-nails-2in", 300); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	_, err = s.CheckoutOrder(ctx, order.ID)
	var shortfall *store.StockShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected shortfall error, got %v", err)
	}
	if shortfall.ProductID != "prod-nails-2in" || shortfall.Requested != 300 || shortfall.Available != 200 {
		t.Fatalf("unexpected shortfall detail: %+v", shortfall)
	}

	cement, err := s.GetProduct(ctx, "prod-cement-40kg")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if cement.Quantity != 120 {
		t.Fatalf("expected cement stock untouched at 120, got %d", cement.Quantity)
	}
}

func TestAggregateMonthlySalesIncludesItemlessMonths(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "History Buyer"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	sold, err := s.CreateOrder(ctx, domain.Order{
		CustomerID: customer.ID,
		OrderedAt:  time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.AddOrderItem(ctx, sold.ID, "prod-hollow-4in", 100); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if _, err := s.CheckoutOrder(ctx, sold.ID); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// An order with no items still marks its month with a zero row.
	if _, err := s.CreateOrder(ctx, domain.Order{
		CustomerID: customer.ID,
		OrderedAt:  time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("create empty order failed: %v", err)
	}

	months, err := s.AggregateMonthlySales(ctx)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	byMonth := make(map[string]domain.MonthlySales, len(months))
	for _, m := range months {
		byMonth[m.Month] = m
	}

	march, ok := byMonth["2026-03"]
	if !ok {
		t.Fatalf("expected a row for 2026-03")
	}
	// Hollow block: capital 1400, SRP round(1400*1.30) = 1820, 100 sold.
	if march.SalesCents != 100*1820 || march.CapitalCents != 100*1400 {
		t.Fatalf("unexpected march totals: %+v", march)
	}

	april, ok := byMonth["2026-04"]
	if !ok {
		t.Fatalf("expected a zero row for 2026-04")
	}
	if april.SalesCents != 0 || april.CapitalCents != 0 {
		t.Fatalf("expected zero totals for item-less month, got %+v", april)
	}
}

func TestOrdersReportJoinsCustomerAndProduct(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Report Buyer", Contact: "0917", Address: "Laoag"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	order, err := s.CreateOrder(ctx, domain.Order{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := s.AddOrderItem(ctx, order.ID, "prod-plywood-12mm", 2); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	// An item-less order produces no report rows.
	if _, err := s.CreateOrder(ctx, domain.Order{CustomerID: customer.ID}); err != nil {
		t.Fatalf("create empty order failed: %v", err)
	}

	rows, err := s.OrdersReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one report row, got %d", len(rows))
	}
	row := rows[0]
	if row.CustomerName != "Report Buyer" || row.ProductName != "Marine Plywood 12mm" || row.Quantity != 2 {
		t.Fatalf("unexpected report row: %+v", row)
	}
}

func TestFindCustomerMatchesExactTriple(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateCustomer(ctx, domain.Customer{Name: "Exact", Contact: "123", Address: "Here"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	found, err := s.FindCustomer(ctx, "Exact", "123", "Here")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected %s, got %s", created.ID, found.ID)
	}

	if _, err := s.FindCustomer(ctx, "Exact", "123", "There"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for different address, got %v", err)
	}
}

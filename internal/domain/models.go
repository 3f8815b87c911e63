package domain

import (
	"math"
	"time"
)

// SRPMarkup is the fixed markup applied to a product's unit capital cost to
// derive its suggested retail price.
const SRPMarkup = 1.30

type Product struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	ProductType       string     `json:"product_type"`
	Quantity          int        `json:"quantity"`
	CapitalCents      int64      `json:"capital_cents"`
	SRPCents          int64      `json:"srp_cents"`
	TotalCapitalCents int64      `json:"total_capital_cents"`
	SupplierID        string     `json:"supplier_id"`
	DateReceived      time.Time  `json:"date_received"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
	LifespanDays      int        `json:"lifespan_days,omitempty"`
}

// DerivePricing recomputes the SRP and total capital value from the unit
// capital cost and on-hand quantity. These two fields are never authoritative
// on their own; call this whenever capital or quantity change.
func (p *Product) DerivePricing() {
	p.SRPCents = int64(math.Round(float64(p.CapitalCents) * SRPMarkup))
	p.TotalCapitalCents = int64(p.Quantity) * p.CapitalCents
}

type ProductCreateRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	ProductType    string `json:"product_type"`
	Quantity       int    `json:"quantity"`
	CapitalCents   int64  `json:"capital_cents"`
	SupplierID     string `json:"supplier_id"`
	DateReceived   string `json:"date_received,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	LifespanDays   int    `json:"lifespan_days,omitempty"`
}

// ProductUpdate is the allow-list of directly settable product fields.
// SRP and total capital are absent on purpose: they are re-derived by the
// store whenever capital or quantity change.
type ProductUpdate struct {
	Name           *string    `json:"name,omitempty"`
	Category       *string    `json:"category,omitempty"`
	ProductType    *string    `json:"product_type,omitempty"`
	Quantity       *int       `json:"quantity,omitempty"`
	CapitalCents   *int64     `json:"capital_cents,omitempty"`
	SupplierID     *string    `json:"supplier_id,omitempty"`
	DateReceived   *time.Time `json:"date_received,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	LifespanDays   *int       `json:"lifespan_days,omitempty"`
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	ContactNumber string    `json:"contact_number"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email"`
	Address       string `json:"address"`
}

type SupplierUpdate struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerInput identifies a customer by the exact (name, contact, address)
// triple used for deduplication.
type CustomerInput struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID           string     `json:"id"`
	CustomerID   string     `json:"customer_id"`
	OrderedAt    time.Time  `json:"ordered_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

type OrderCreateRequest struct {
	CustomerID string `json:"customer_id"`
	OrderedAt  string `json:"ordered_at,omitempty"`
}

type OrderItem struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLine is one (product, quantity) pairing inside a transient cart.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the transient value object a sale session accumulates items into.
// It is never persisted; after a finalized or abandoned sale the caller
// simply discards it.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// AddLine merges the quantity into an existing line for the same product or
// appends a new line. It returns the resulting quantity for that product.
func (c *Cart) AddLine(productID string, qty int) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += qty
			return c.Lines[i].Quantity
		}
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: qty})
	return qty
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// StockChange records one product's decrement applied by a checkout.
type StockChange struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Requested      int    `json:"requested"`
	Remaining      int    `json:"remaining"`
	UnitSRPCents   int64  `json:"unit_srp_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type CheckoutResult struct {
	OrderID    string        `json:"order_id"`
	Changes    []StockChange `json:"changes"`
	TotalItems int           `json:"total_items"`
	TotalCents int64         `json:"total_cents"`
	Summary    string        `json:"summary"`
}

type SaleRequest struct {
	Customer CustomerInput `json:"customer"`
	Items    []CartLine    `json:"items"`
}

type SaleResponse struct {
	CustomerID string         `json:"customer_id"`
	Checkout   CheckoutResult `json:"checkout"`
}

// MonthlySales is one month's raw aggregation over the order history.
type MonthlySales struct {
	Month        string `json:"month"`
	SalesCents   int64  `json:"sales_cents"`
	CapitalCents int64  `json:"capital_cents"`
}

// MonthlyFinancial is the persisted per-month rollup. Operating expenses and
// taxes are the only caller-settable fields; everything else is re-derived on
// each recompute.
type MonthlyFinancial struct {
	Month                  string `json:"month"`
	TotalSalesCents        int64  `json:"total_sales_cents"`
	TotalCapitalCents      int64  `json:"total_capital_cents"`
	GrossProfitCents       int64  `json:"gross_profit_cents"`
	OperatingExpensesCents int64  `json:"operating_expenses_cents"`
	TaxesCents             int64  `json:"taxes_cents"`
	OperatingProfitCents   int64  `json:"operating_profit_cents"`
	NetProfitCents         int64  `json:"net_profit_cents"`
}

type RecomputeRequest struct {
	Month                  string `json:"month,omitempty"`
	OperatingExpensesCents *int64 `json:"operating_expenses_cents,omitempty"`
	TaxesCents             *int64 `json:"taxes_cents,omitempty"`
}

type OrderReportRow struct {
	OrderID        string    `json:"order_id"`
	OrderedAt      time.Time `json:"ordered_at"`
	CustomerName   string    `json:"customer_name"`
	Contact        string    `json:"contact,omitempty"`
	Address        string    `json:"address,omitempty"`
	ProductName    string    `json:"product_name"`
	UnitSRPCents   int64     `json:"unit_srp_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// DeliveryStatusPending is the status every new delivery starts in.
const DeliveryStatusPending = "Pending"

// Delivery is a scheduled drop-off of a product to a customer. It carries the
// customer triple verbatim rather than a customer reference: the recipient of
// a delivery may differ from any customer on file.
type Delivery struct {
	ID              string    `json:"id"`
	Product         string    `json:"product"`
	CustomerName    string    `json:"customer_name"`
	Contact         string    `json:"contact,omitempty"`
	CustomerAddress string    `json:"customer_address,omitempty"`
	DeliveryAddress string    `json:"delivery_address"`
	DeliveryDate    time.Time `json:"delivery_date"`
	Status          string    `json:"status"`
	Remarks         string    `json:"remarks,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type DeliveryCreateRequest struct {
	Product         string `json:"product"`
	CustomerName    string `json:"customer_name"`
	Contact         string `json:"contact,omitempty"`
	CustomerAddress string `json:"customer_address,omitempty"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryDate    string `json:"delivery_date"`
	Remarks         string `json:"remarks,omitempty"`
}

// DeliveryUpdate is the allow-list of directly settable delivery fields.
type DeliveryUpdate struct {
	Product         *string    `json:"product,omitempty"`
	CustomerName    *string    `json:"customer_name,omitempty"`
	Contact         *string    `json:"contact,omitempty"`
	CustomerAddress *string    `json:"customer_address,omitempty"`
	DeliveryAddress *string    `json:"delivery_address,omitempty"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Remarks         *string    `json:"remarks,omitempty"`
}

type DailySales struct {
	Day        string `json:"day"`
	SalesCents int64  `json:"sales_cents"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

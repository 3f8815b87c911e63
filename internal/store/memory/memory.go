package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/store"
	"hncstore/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	suppliers       map[string]domain.Supplier
	customers       map[string]domain.Customer
	orders          map[string]domain.Order
	orderItems      map[string][]domain.OrderItem
	deliveries      map[string]domain.Delivery
	financials      map[string]domain.MonthlyFinancial
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		suppliers:       make(map[string]domain.Supplier),
		customers:       make(map[string]domain.Customer),
		orders:          make(map[string]domain.Order),
		orderItems:      make(map[string][]domain.OrderItem),
		deliveries:      make(map[string]domain.Delivery),
		financials:      make(map[string]domain.MonthlyFinancial),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; if unset
// hardcoded dev defaults are used with a warning. The in-memory store is never
// used in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"staff", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()

	suppliers := []domain.Supplier{
		{ID: "sup-norte-builders", Name: "Norte Builders Supply", ContactPerson: "R. Dizon", ContactNumber: "09171234567", Email: "orders@nortebuilders.ph", Address: "Laoag City"},
		{ID: "sup-solid-cement", Name: "Solid Cement Trading", ContactPerson: "M. Uy", ContactNumber: "09209876543", Email: "sales@solidcement.ph", Address: "San Nicolas"},
	}
	now := time.Now().UTC()
	for _, sup := range suppliers {
		sup.CreatedAt = now
		s.suppliers[sup.ID] = sup
	}

	products := []struct {
		id       string
		name     string
		category string
		ptype    string
		qty      int
		capital  int64
		supplier string
	}{
		{"prod-cement-40kg", "Portland Cement 40kg", "Construction", "Cement", 120, 24500, "sup-solid-cement"},
		{"prod-plywood-12mm", "Marine Plywood 12mm", "Construction", "Board", 60, 78000, "sup-norte-builders"},
		{"prod-nails-2in", "Common Nails 2in (kg)", "Hardware", "Fastener", 200, 7500, "sup-norte-builders"},
		{"prod-hollow-4in", "Hollow Block 4in", "Construction", "Masonry", 500, 1400, "sup-solid-cement"},
		{"prod-paint-white", "Latex Paint White 4L", "Hardware", "Paint", 40, 52000, "sup-norte-builders"},
		{"prod-gi-wire", "GI Tie Wire (roll)", "Hardware", "Wire", 80, 16000, "sup-norte-builders"},
	}
	for _, item := range products {
		p := domain.Product{
			ID:           item.id,
			Name:         item.name,
			Category:     item.category,
			ProductType:  item.ptype,
			Quantity:     item.qty,
			CapitalCents: item.capital,
			SupplierID:   item.supplier,
			DateReceived: now,
		}
		p.DerivePricing()
		s.products[p.ID] = p
	}

	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Quantity < 0 || product.CapitalCents < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SupplierID != "" {
		if _, ok := s.suppliers[product.SupplierID]; !ok {
			return nil, fmt.Errorf("supplier %s: %w", product.SupplierID, store.ErrNotFound)
		}
	}
	for _, existing := range s.products {
		if existing.Name == product.Name && existing.Category == product.Category &&
			existing.ProductType == product.ProductType && existing.SupplierID == product.SupplierID {
			return nil, store.ErrDuplicate
		}
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.DateReceived.IsZero() {
		product.DateReceived = time.Now().UTC()
	}
	product.DerivePricing()

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Category != products[j].Category {
			return products[i].Category < products[j].Category
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, store.ErrValidation
		}
		product.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Category != nil {
		product.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.ProductType != nil {
		product.ProductType = strings.TrimSpace(*upd.ProductType)
	}
	if upd.Quantity != nil {
		if *upd.Quantity < 0 {
			return nil, store.ErrValidation
		}
		product.Quantity = *upd.Quantity
	}
	if upd.CapitalCents != nil {
		if *upd.CapitalCents < 0 {
			return nil, store.ErrValidation
		}
		product.CapitalCents = *upd.CapitalCents
	}
	if upd.SupplierID != nil {
		if _, ok := s.suppliers[*upd.SupplierID]; !ok {
			return nil, fmt.Errorf("supplier %s: %w", *upd.SupplierID, store.ErrNotFound)
		}
		product.SupplierID = *upd.SupplierID
	}
	if upd.DateReceived != nil {
		product.DateReceived = *upd.DateReceived
	}
	if upd.ExpirationDate != nil {
		expiry := *upd.ExpirationDate
		product.ExpirationDate = &expiry
	}
	if upd.LifespanDays != nil {
		product.LifespanDays = *upd.LifespanDays
	}

	product.DerivePricing()
	s.products[id] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, items := range s.orderItems {
		for _, item := range items {
			if item.ProductID == id {
				return fmt.Errorf("product %s is referenced by orders: %w", id, store.ErrValidation)
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := supplier
	return &found, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		suppliers = append(suppliers, sup)
	}
	sort.Slice(suppliers, func(i, j int) bool {
		return suppliers[i].Name < suppliers[j].Name
	})
	return suppliers, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, id string, upd domain.SupplierUpdate) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, store.ErrValidation
		}
		supplier.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.ContactPerson != nil {
		supplier.ContactPerson = strings.TrimSpace(*upd.ContactPerson)
	}
	if upd.ContactNumber != nil {
		supplier.ContactNumber = strings.TrimSpace(*upd.ContactNumber)
	}
	if upd.Email != nil {
		supplier.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.Address != nil {
		supplier.Address = strings.TrimSpace(*upd.Address)
	}
	s.suppliers[id] = supplier
	updated := supplier
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[id]; !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.SupplierID == id {
			return fmt.Errorf("supplier %s is referenced by products: %w", id, store.ErrValidation)
		}
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) FindCustomer(ctx context.Context, name string, contact string, address string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.Name == name && c.Contact == contact && c.Address == address {
			found := c
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].Name < customers[j].Name
	})
	return customers, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[order.CustomerID]; !ok {
		return nil, fmt.Errorf("customer %s: %w", order.CustomerID, store.ErrNotFound)
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.OrderedAt.IsZero() {
		order.OrderedAt = time.Now().UTC()
	}
	s.orders[order.ID] = order
	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := order
	return &found, nil
}

func (s *Store) AddOrderItem(ctx context.Context, orderID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return 0, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	if order.CheckedOutAt != nil {
		return 0, fmt.Errorf("order %s: %w", orderID, store.ErrAlreadyFinalized)
	}
	if _, ok := s.products[productID]; !ok {
		return 0, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}

	items := s.orderItems[orderID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += qty
			return items[i].Quantity, nil
		}
	}
	s.orderItems[orderID] = append(items, domain.OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  qty,
	})
	return qty, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, store.ErrNotFound
	}
	items := make([]domain.OrderItem, len(s.orderItems[orderID]))
	copy(items, s.orderItems[orderID])
	return items, nil
}

func (s *Store) CheckoutOrder(ctx context.Context, orderID string) ([]domain.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	if order.CheckedOutAt != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, store.ErrAlreadyFinalized)
	}
	items := s.orderItems[orderID]
	if len(items) == 0 {
		return nil, fmt.Errorf("order %s has no items: %w", orderID, store.ErrNotFound)
	}

	// Pre-flight pass: every line must be satisfiable before anything mutates.
	for _, item := range items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		if product.Quantity < item.Quantity {
			return nil, &store.StockShortfallError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: item.Quantity,
				Available: product.Quantity,
			}
		}
	}

	// Decrement into a staging copy, re-checking each line, then commit all at
	// once so a failed line leaves the live inventory untouched.
	staged := make(map[string]domain.Product, len(items))
	changes := make([]domain.StockChange, 0, len(items))
	for _, item := range items {
		product := s.products[item.ProductID]
		if prev, ok := staged[item.ProductID]; ok {
			product = prev
		}
		if product.Quantity < item.Quantity {
			return nil, &store.StockShortfallError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: item.Quantity,
				Available: product.Quantity,
			}
		}
		product.Quantity -= item.Quantity
		product.DerivePricing()
		staged[item.ProductID] = product

		changes = append(changes, domain.StockChange{
			ProductID:      product.ID,
			Name:           product.Name,
			Requested:      item.Quantity,
			Remaining:      product.Quantity,
			UnitSRPCents:   product.SRPCents,
			LineTotalCents: int64(item.Quantity) * product.SRPCents,
		})
	}
	for id, product := range staged {
		s.products[id] = product
	}
	checkedOut := time.Now().UTC()
	order.CheckedOutAt = &checkedOut
	s.orders[orderID] = order

	return changes, nil
}

func (s *Store) AggregateMonthlySales(ctx context.Context) ([]domain.MonthlySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMonth := make(map[string]*domain.MonthlySales)
	for _, order := range s.orders {
		month := order.OrderedAt.UTC().Format("2006-01")
		row, ok := byMonth[month]
		if !ok {
			row = &domain.MonthlySales{Month: month}
			byMonth[month] = row
		}
		for _, item := range s.orderItems[order.ID] {
			product, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			row.SalesCents += int64(item.Quantity) * product.SRPCents
			row.CapitalCents += int64(item.Quantity) * product.CapitalCents
		}
	}

	months := make([]domain.MonthlySales, 0, len(byMonth))
	for _, row := range byMonth {
		months = append(months, *row)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month < months[j].Month
	})
	return months, nil
}

func (s *Store) GetMonthlyFinancial(ctx context.Context, month string) (*domain.MonthlyFinancial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.financials[month]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := row
	return &found, nil
}

func (s *Store) UpsertMonthlyFinancial(ctx context.Context, row domain.MonthlyFinancial) error {
	if row.Month == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.financials[row.Month] = row
	return nil
}

func (s *Store) ListMonthlyFinancials(ctx context.Context) ([]domain.MonthlyFinancial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.MonthlyFinancial, 0, len(s.financials))
	for _, row := range s.financials {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Month < rows[j].Month
	})
	return rows, nil
}

func (s *Store) OrdersReport(ctx context.Context) ([]domain.OrderReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.OrderReportRow, 0, len(s.orders))
	for _, order := range s.orders {
		customer, ok := s.customers[order.CustomerID]
		if !ok {
			continue
		}
		for _, item := range s.orderItems[order.ID] {
			product, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			rows = append(rows, domain.OrderReportRow{
				OrderID:        order.ID,
				OrderedAt:      order.OrderedAt,
				CustomerName:   customer.Name,
				Contact:        customer.Contact,
				Address:        customer.Address,
				ProductName:    product.Name,
				UnitSRPCents:   product.SRPCents,
				Quantity:       item.Quantity,
				LineTotalCents: int64(item.Quantity) * product.SRPCents,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].OrderedAt.Equal(rows[j].OrderedAt) {
			return rows[i].OrderedAt.Before(rows[j].OrderedAt)
		}
		return rows[i].OrderID < rows[j].OrderID
	})
	return rows, nil
}

func (s *Store) DailySales(ctx context.Context) ([]domain.DailySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]int64)
	for _, order := range s.orders {
		day := order.OrderedAt.UTC().Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			byDay[day] = 0
		}
		for _, item := range s.orderItems[order.ID] {
			product, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			byDay[day] += int64(item.Quantity) * product.SRPCents
		}
	}

	days := make([]domain.DailySales, 0, len(byDay))
	for day, total := range byDay {
		days = append(days, domain.DailySales{Day: day, SalesCents: total})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day < days[j].Day
	})
	return days, nil
}

func (s *Store) CreateDelivery(ctx context.Context, delivery domain.Delivery) (*domain.Delivery, error) {
	if delivery.Product == "" || delivery.CustomerName == "" || delivery.DeliveryAddress == "" {
		return nil, store.ErrValidation
	}
	if delivery.ID == "" {
		delivery.ID = xid.New("del")
	}
	if delivery.Status == "" {
		delivery.Status = domain.DeliveryStatusPending
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[delivery.ID] = delivery
	created := delivery
	return &created, nil
}

func (s *Store) GetDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivery, ok := s.deliveries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := delivery
	return &found, nil
}

func (s *Store) ListDeliveries(ctx context.Context) ([]domain.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deliveries := make([]domain.Delivery, 0, len(s.deliveries))
	for _, delivery := range s.deliveries {
		deliveries = append(deliveries, delivery)
	}
	sort.Slice(deliveries, func(i, j int) bool {
		if !deliveries[i].DeliveryDate.Equal(deliveries[j].DeliveryDate) {
			return deliveries[i].DeliveryDate.Before(deliveries[j].DeliveryDate)
		}
		return deliveries[i].ID < deliveries[j].ID
	})
	return deliveries, nil
}

func (s *Store) UpdateDelivery(ctx context.Context, id string, upd domain.DeliveryUpdate) (*domain.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivery, ok := s.deliveries[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if upd.Product != nil {
		if strings.TrimSpace(*upd.Product) == "" {
			return nil, store.ErrValidation
		}
		delivery.Product = strings.TrimSpace(*upd.Product)
	}
	if upd.CustomerName != nil {
		if strings.TrimSpace(*upd.CustomerName) == "" {
			return nil, store.ErrValidation
		}
		delivery.CustomerName = strings.TrimSpace(*upd.CustomerName)
	}
	if upd.Contact != nil {
		delivery.Contact = strings.TrimSpace(*upd.Contact)
	}
	if upd.CustomerAddress != nil {
		delivery.CustomerAddress = strings.TrimSpace(*upd.CustomerAddress)
	}
	if upd.DeliveryAddress != nil {
		if strings.TrimSpace(*upd.DeliveryAddress) == "" {
			return nil, store.ErrValidation
		}
		delivery.DeliveryAddress = strings.TrimSpace(*upd.DeliveryAddress)
	}
	if upd.DeliveryDate != nil {
		delivery.DeliveryDate = *upd.DeliveryDate
	}
	if upd.Status != nil {
		if strings.TrimSpace(*upd.Status) == "" {
			return nil, store.ErrValidation
		}
		delivery.Status = strings.TrimSpace(*upd.Status)
	}
	if upd.Remarks != nil {
		delivery.Remarks = strings.TrimSpace(*upd.Remarks)
	}

	s.deliveries[id] = delivery
	updated := delivery
	return &updated, nil
}

func (s *Store) DeleteDelivery(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deliveries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.deliveries, id)
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByUsername[user.Username]; ok {
		return store.ErrDuplicate
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

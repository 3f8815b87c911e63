package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/store"
	"hncstore/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Quantity < 0 || product.CapitalCents < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.DateReceived.IsZero() {
		product.DateReceived = time.Now().UTC()
	}
	product.DerivePricing()

	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM products
		WHERE name = $1 AND category = $2 AND product_type = $3 AND supplier_id IS NOT DISTINCT FROM NULLIF($4,'')
	`, product.Name, product.Category, product.ProductType, product.SupplierID).Scan(&existingID)
	if err == nil {
		return nil, store.ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, category, product_type, quantity, capital_cents, srp_cents,
			total_capital_cents, supplier_id, date_received, expiration_date,
			lifespan_days, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,now(),now())
	`, product.ID, product.Name, product.Category, product.ProductType, product.Quantity,
		product.CapitalCents, product.SRPCents, product.TotalCapitalCents, product.SupplierID,
		product.DateReceived, nullTime(product.ExpirationDate), product.LifespanDays)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("supplier %s: %w", product.SupplierID, store.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, product_type, quantity, capital_cents, srp_cents,
			total_capital_cents, COALESCE(supplier_id,''), date_received, expiration_date, lifespan_days
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, product_type, quantity, capital_cents, srp_cents,
			total_capital_cents, COALESCE(supplier_id,''), date_received, expiration_date, lifespan_days
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, category, product_type, quantity, capital_cents, srp_cents,
			total_capital_cents, COALESCE(supplier_id,''), date_received, expiration_date, lifespan_days
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, store.ErrValidation
		}
		product.Name = *upd.Name
	}
	if upd.Category != nil {
		product.Category = *upd.Category
	}
	if upd.ProductType != nil {
		product.ProductType = *upd.ProductType
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

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, product_type = $4, quantity = $5, capital_cents = $6,
			srp_cents = $7, total_capital_cents = $8, supplier_id = NULLIF($9,''),
			date_received = $10, expiration_date = $11, lifespan_days = $12, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.ProductType, product.Quantity,
		product.CapitalCents, product.SRPCents, product.TotalCapitalCents, product.SupplierID,
		product.DateReceived, nullTime(product.ExpirationDate), product.LifespanDays)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("supplier %s: %w", product.SupplierID, store.ErrNotFound)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("product %s is referenced by orders: %w", id, store.ErrValidation)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrValidation
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, contact_number, email, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, supplier.ID, supplier.Name, supplier.ContactPerson, supplier.ContactNumber, supplier.Email, supplier.Address, supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := supplier
	return &created, nil
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, contact_number, email, address, created_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&supplier.ID, &supplier.Name, &supplier.ContactPerson, &supplier.ContactNumber, &supplier.Email, &supplier.Address, &supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return &supplier, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_person, contact_number, email, address, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var supplier domain.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.ContactPerson, &supplier.ContactNumber, &supplier.Email, &supplier.Address, &supplier.CreatedAt); err != nil {
			return nil, err
		}
		supplier.CreatedAt = supplier.CreatedAt.UTC()
		suppliers = append(suppliers, supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, id string, upd domain.SupplierUpdate) (*domain.Supplier, error) {
	existing, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}

	supplier := *existing
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, store.ErrValidation
		}
		supplier.Name = *upd.Name
	}
	if upd.ContactPerson != nil {
		supplier.ContactPerson = *upd.ContactPerson
	}
	if upd.ContactNumber != nil {
		supplier.ContactNumber = *upd.ContactNumber
	}
	if upd.Email != nil {
		supplier.Email = *upd.Email
	}
	if upd.Address != nil {
		supplier.Address = *upd.Address
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact_person = $3, contact_number = $4, email = $5, address = $6
		WHERE id = $1
	`, supplier.ID, supplier.Name, supplier.ContactPerson, supplier.ContactNumber, supplier.Email, supplier.Address)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return &supplier, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("supplier %s is referenced by products: %w", id, store.ErrValidation)
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindCustomer(ctx context.Context, name string, contact string, address string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(contact,''), COALESCE(address,''), created_at
		FROM customers
		WHERE name = $1 AND COALESCE(contact,'') = $2 AND COALESCE(address,'') = $3
	`, name, contact, address).Scan(&customer.ID, &customer.Name, &customer.Contact, &customer.Address, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrValidation
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, contact, address, created_at)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5)
	`, customer.ID, customer.Name, customer.Contact, customer.Address, customer.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(contact,''), COALESCE(address,''), created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Contact, &customer.Address, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customer.CreatedAt = customer.CreatedAt.UTC()
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.OrderedAt.IsZero() {
		order.OrderedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, ordered_at)
		VALUES ($1,$2,$3)
	`, order.ID, order.CustomerID, order.OrderedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("customer %s: %w", order.CustomerID, store.ErrNotFound)
		}
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var checkedOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, ordered_at, checked_out_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID, &order.OrderedAt, &checkedOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.OrderedAt = order.OrderedAt.UTC()
	if checkedOut.Valid {
		at := checkedOut.Time.UTC()
		order.CheckedOutAt = &at
	}
	return &order, nil
}

func (s *Store) AddOrderItem(ctx context.Context, orderID string, productID string, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrValidation
	}

	var checkedOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT checked_out_at FROM orders WHERE id = $1
	`, orderID).Scan(&checkedOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
		}
		return 0, err
	}
	if checkedOut.Valid {
		return 0, fmt.Errorf("order %s: %w", orderID, store.ErrAlreadyFinalized)
	}

	var total int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (order_id, product_id)
		DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity
		RETURNING quantity
	`, orderID, productID, qty).Scan(&total)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("order %s or product %s: %w", orderID, productID, store.ErrNotFound)
		}
		return 0, err
	}
	return total, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CheckoutOrder(ctx context.Context, orderID string) ([]domain.StockChange, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var alreadyOut sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT checked_out_at FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&alreadyOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
		}
		return nil, err
	}
	if alreadyOut.Valid {
		return nil, fmt.Errorf("order %s: %w", orderID, store.ErrAlreadyFinalized)
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	type line struct {
		productID string
		qty       int
	}
	lines := make([]line, 0, 8)
	for itemRows.Next() {
		var item line
		if err := itemRows.Scan(&item.productID, &item.qty); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		lines = append(lines, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	if len(lines) == 0 {
		return nil, fmt.Errorf("order %s has no items: %w", orderID, store.ErrNotFound)
	}

	// Pre-flight pass: read every product and verify sufficiency before any
	// write, so a late shortfall never leaves earlier lines half-applied.
	type productState struct {
		name     string
		quantity int
		srpCents int64
	}
	states := make(map[string]productState, len(lines))
	for _, item := range lines {
		var state productState
		err := tx.QueryRowContext(ctx, `
			SELECT name, quantity, srp_cents
			FROM products
			WHERE id = $1
		`, item.productID).Scan(&state.name, &state.quantity, &state.srpCents)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("product %s: %w", item.productID, store.ErrNotFound)
			}
			return nil, err
		}
		states[item.productID] = state
		if state.quantity < item.qty {
			return nil, &store.StockShortfallError{
				ProductID: item.productID,
				Name:      state.name,
				Requested: item.qty,
				Available: state.quantity,
			}
		}
	}

	// Conditional decrement with write-time recheck. Zero rows affected means
	// the stock moved under us; the whole transaction rolls back.
	changes := make([]domain.StockChange, 0, len(lines))
	for _, item := range lines {
		state := states[item.productID]
		var remaining int
		err := tx.QueryRowContext(ctx, `
			UPDATE products
			SET quantity = quantity - $1,
				total_capital_cents = (quantity - $1) * capital_cents,
				updated_at = now()
			WHERE id = $2 AND quantity >= $1
			RETURNING quantity
		`, item.qty, item.productID).Scan(&remaining)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, &store.StockShortfallError{
					ProductID: item.productID,
					Name:      state.name,
					Requested: item.qty,
					Available: state.quantity,
				}
			}
			return nil, err
		}

		changes = append(changes, domain.StockChange{
			ProductID:      item.productID,
			Name:           state.name,
			Requested:      item.qty,
			Remaining:      remaining,
			UnitSRPCents:   state.srpCents,
			LineTotalCents: int64(item.qty) * state.srpCents,
		})
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET checked_out_at = now() WHERE id = $1
	`, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			id, product, customer_name, contact, customer_address,
			delivery_address, delivery_date, status, remarks, created_at
		)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7,$8,NULLIF($9,''),$10)
	`, delivery.ID, delivery.Product, delivery.CustomerName, delivery.Contact, delivery.CustomerAddress,
		delivery.DeliveryAddress, delivery.DeliveryDate, delivery.Status, delivery.Remarks, delivery.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := delivery
	return &created, nil
}

func (s *Store) GetDelivery(ctx context.Context, id string) (*domain.Delivery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product, customer_name, COALESCE(contact,''), COALESCE(customer_address,''),
			delivery_address, delivery_date, status, COALESCE(remarks,''), created_at
		FROM deliveries
		WHERE id = $1
	`, id)
	delivery, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return delivery, nil
}

func (s *Store) ListDeliveries(ctx context.Context) ([]domain.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product, customer_name, COALESCE(contact,''), COALESCE(customer_address,''),
			delivery_address, delivery_date, status, COALESCE(remarks,''), created_at
		FROM deliveries
		ORDER BY delivery_date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := make([]domain.Delivery, 0, 32)
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (s *Store) UpdateDelivery(ctx context.Context, id string, upd domain.DeliveryUpdate) (*domain.Delivery, error) {
	existing, err := s.GetDelivery(ctx, id)
	if err != nil {
		return nil, err
	}

	delivery := *existing
	if upd.Product != nil {
		if *upd.Product == "" {
			return nil, store.ErrValidation
		}
		delivery.Product = *upd.Product
	}
	if upd.CustomerName != nil {
		if *upd.CustomerName == "" {
			return nil, store.ErrValidation
		}
		delivery.CustomerName = *upd.CustomerName
	}
	if upd.Contact != nil {
		delivery.Contact = *upd.Contact
	}
	if upd.CustomerAddress != nil {
		delivery.CustomerAddress = *upd.CustomerAddress
	}
	if upd.DeliveryAddress != nil {
		if *upd.DeliveryAddress == "" {
			return nil, store.ErrValidation
		}
		delivery.DeliveryAddress = *upd.DeliveryAddress
	}
	if upd.DeliveryDate != nil {
		delivery.DeliveryDate = *upd.DeliveryDate
	}
	if upd.Status != nil {
		if *upd.Status == "" {
			return nil, store.ErrValidation
		}
		delivery.Status = *upd.Status
	}
	if upd.Remarks != nil {
		delivery.Remarks = *upd.Remarks
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries
		SET product = $2, customer_name = $3, contact = NULLIF($4,''), customer_address = NULLIF($5,''),
			delivery_address = $6, delivery_date = $7, status = $8, remarks = NULLIF($9,'')
		WHERE id = $1
	`, delivery.ID, delivery.Product, delivery.CustomerName, delivery.Contact, delivery.CustomerAddress,
		delivery.DeliveryAddress, delivery.DeliveryDate, delivery.Status, delivery.Remarks)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return &delivery, nil
}

func (s *Store) DeleteDelivery(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AggregateMonthlySales(ctx context.Context) ([]domain.MonthlySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(o.ordered_at AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
			COALESCE(SUM(oi.quantity * p.srp_cents), 0) AS sales_cents,
			COALESCE(SUM(oi.quantity * p.capital_cents), 0) AS capital_cents
		FROM orders AS o
		LEFT JOIN order_items AS oi ON oi.order_id = o.id
		LEFT JOIN products AS p ON p.id = oi.product_id
		GROUP BY 1
		ORDER BY 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	months := make([]domain.MonthlySales, 0, 24)
	for rows.Next() {
		var row domain.MonthlySales
		if err := rows.Scan(&row.Month, &row.SalesCents, &row.CapitalCents); err != nil {
			return nil, err
		}
		months = append(months, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return months, nil
}

func (s *Store) GetMonthlyFinancial(ctx context.Context, month string) (*domain.MonthlyFinancial, error) {
	var row domain.MonthlyFinancial
	err := s.db.QueryRowContext(ctx, `
		SELECT month, total_sales_cents, total_capital_cents, gross_profit_cents,
			operating_expenses_cents, taxes_cents, operating_profit_cents, net_profit_cents
		FROM monthly_financials
		WHERE month = $1
	`, month).Scan(&row.Month, &row.TotalSalesCents, &row.TotalCapitalCents, &row.GrossProfitCents,
		&row.OperatingExpensesCents, &row.TaxesCents, &row.OperatingProfitCents, &row.NetProfitCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (s *Store) UpsertMonthlyFinancial(ctx context.Context, row domain.MonthlyFinancial) error {
	if row.Month == "" {
		return store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_financials (
			month, total_sales_cents, total_capital_cents, gross_profit_cents,
			operating_expenses_cents, taxes_cents, operating_profit_cents, net_profit_cents
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (month) DO UPDATE SET
			total_sales_cents = EXCLUDED.total_sales_cents,
			total_capital_cents = EXCLUDED.total_capital_cents,
			gross_profit_cents = EXCLUDED.gross_profit_cents,
			operating_expenses_cents = EXCLUDED.operating_expenses_cents,
			taxes_cents = EXCLUDED.taxes_cents,
			operating_profit_cents = EXCLUDED.operating_profit_cents,
			net_profit_cents = EXCLUDED.net_profit_cents
	`, row.Month, row.TotalSalesCents, row.TotalCapitalCents, row.GrossProfitCents,
		row.OperatingExpensesCents, row.TaxesCents, row.OperatingProfitCents, row.NetProfitCents)
	return err
}

func (s *Store) ListMonthlyFinancials(ctx context.Context) ([]domain.MonthlyFinancial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT month, total_sales_cents, total_capital_cents, gross_profit_cents,
			operating_expenses_cents, taxes_cents, operating_profit_cents, net_profit_cents
		FROM monthly_financials
		ORDER BY month
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.MonthlyFinancial, 0, 24)
	for rows.Next() {
		var row domain.MonthlyFinancial
		if err := rows.Scan(&row.Month, &row.TotalSalesCents, &row.TotalCapitalCents, &row.GrossProfitCents,
			&row.OperatingExpensesCents, &row.TaxesCents, &row.OperatingProfitCents, &row.NetProfitCents); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) OrdersReport(ctx context.Context) ([]domain.OrderReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.ordered_at, c.name, COALESCE(c.contact,''), COALESCE(c.address,''),
			p.name, p.srp_cents, oi.quantity, oi.quantity * p.srp_cents
		FROM order_items AS oi
		INNER JOIN orders AS o ON o.id = oi.order_id
		INNER JOIN customers AS c ON c.id = o.customer_id
		INNER JOIN products AS p ON p.id = oi.product_id
		ORDER BY o.ordered_at, o.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := make([]domain.OrderReportRow, 0, 128)
	for rows.Next() {
		var row domain.OrderReportRow
		if err := rows.Scan(&row.OrderID, &row.OrderedAt, &row.CustomerName, &row.Contact, &row.Address,
			&row.ProductName, &row.UnitSRPCents, &row.Quantity, &row.LineTotalCents); err != nil {
			return nil, err
		}
		row.OrderedAt = row.OrderedAt.UTC()
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Store) DailySales(ctx context.Context) ([]domain.DailySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(o.ordered_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS order_day,
			COALESCE(SUM(oi.quantity * p.srp_cents), 0) AS sales_cents
		FROM orders AS o
		LEFT JOIN order_items AS oi ON oi.order_id = o.id
		LEFT JOIN products AS p ON p.id = oi.product_id
		GROUP BY 1
		ORDER BY 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]domain.DailySales, 0, 32)
	for rows.Next() {
		var row domain.DailySales
		if err := rows.Scan(&row.Day, &row.SalesCents); err != nil {
			return nil, err
		}
		days = append(days, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var expiry sql.NullTime
	err := row.Scan(&product.ID, &product.Name, &product.Category, &product.ProductType,
		&product.Quantity, &product.CapitalCents, &product.SRPCents, &product.TotalCapitalCents,
		&product.SupplierID, &product.DateReceived, &expiry, &product.LifespanDays)
	if err != nil {
		return nil, err
	}
	product.DateReceived = product.DateReceived.UTC()
	if expiry.Valid {
		e := expiry.Time.UTC()
		product.ExpirationDate = &e
	}
	return &product, nil
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var delivery domain.Delivery
	err := row.Scan(&delivery.ID, &delivery.Product, &delivery.CustomerName, &delivery.Contact,
		&delivery.CustomerAddress, &delivery.DeliveryAddress, &delivery.DeliveryDate,
		&delivery.Status, &delivery.Remarks, &delivery.CreatedAt)
	if err != nil {
		return nil, err
	}
	delivery.DeliveryDate = delivery.DeliveryDate.UTC()
	delivery.CreatedAt = delivery.CreatedAt.UTC()
	return &delivery, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

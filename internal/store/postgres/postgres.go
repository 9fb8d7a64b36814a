package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
	"kamepos/backend/internal/xid"
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

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), price_cents, category, active, stock_type, stock, version
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.Active, &p.StockType, &p.Stock, &p.Version); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].StockType != domain.StockTypeRecipe {
			continue
		}
		recipe, err := s.loadRecipe(ctx, s.db, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Recipe = recipe
	}

	return products, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) loadRecipe(ctx context.Context, q queryer, productID string) ([]domain.RecipeComponent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ingredient_id, quantity
		FROM product_recipes
		WHERE product_id = $1
		ORDER BY position
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipe := make([]domain.RecipeComponent, 0, 4)
	for rows.Next() {
		var component domain.RecipeComponent
		if err := rows.Scan(&component.IngredientID, &component.Quantity); err != nil {
			return nil, err
		}
		recipe = append(recipe, component)
	}
	return recipe, rows.Err()
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), price_cents, category, active, stock_type, stock, version
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.Active, &p.StockType, &p.Stock, &p.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if p.StockType == domain.StockTypeRecipe {
		recipe, err := s.loadRecipe(ctx, s.db, p.ID)
		if err != nil {
			return nil, err
		}
		p.Recipe = recipe
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), price_cents, category, active, stock_type, stock, version
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.Active, &p.StockType, &p.Stock, &p.Version); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for id, p := range result {
		if p.StockType != domain.StockTypeRecipe {
			continue
		}
		recipe, err := s.loadRecipe(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		p.Recipe = recipe
		result[id] = p
	}

	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price_cents, category, active, stock_type, stock, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
	`, product.ID, product.Name, nullIfEmpty(product.Description), product.PriceCents, product.Category,
		product.Active, product.StockType, product.Stock, product.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	if err := replaceRecipe(ctx, tx, product.ID, product.Recipe); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price_cents = $4, category = $5, active = $6,
		    stock_type = $7, stock = $8, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version
	`, product.ID, product.Name, nullIfEmpty(product.Description), product.PriceCents, product.Category,
		product.Active, product.StockType, product.Stock).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := replaceRecipe(ctx, tx, product.ID, product.Recipe); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	product.Version = version
	updated := product
	return &updated, nil
}

func replaceRecipe(ctx context.Context, tx *sql.Tx, productID string, recipe []domain.RecipeComponent) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_recipes WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for i, component := range recipe {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_recipes (product_id, position, ingredient_id, quantity)
			VALUES ($1,$2,$3,$4)
		`, productID, i, component.IngredientID, component.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_recipes WHERE product_id = $1`, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, current_stock, min_stock, cost_per_unit_cents, version
		FROM ingredients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 32)
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.MinStock, &ing.CostPerUnitCents, &ing.Version); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (s *Store) GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, unit, current_stock, min_stock, cost_per_unit_cents, version
		FROM ingredients
		WHERE id = $1
	`, id).Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.MinStock, &ing.CostPerUnitCents, &ing.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ing, nil
}

func (s *Store) GetIngredientsByIDs(ctx context.Context, ids []string) (map[string]domain.Ingredient, error) {
	if len(ids) == 0 {
		return map[string]domain.Ingredient{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, current_stock, min_stock, cost_per_unit_cents, version
		FROM ingredients
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Ingredient, len(ids))
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.MinStock, &ing.CostPerUnitCents, &ing.Version); err != nil {
			return nil, err
		}
		result[ing.ID] = ing
	}
	return result, rows.Err()
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	ingredient.Version = 1

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, unit, current_stock, min_stock, cost_per_unit_cents, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.CurrentStock, ingredient.MinStock,
		ingredient.CostPerUnitCents, ingredient.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE ingredients
		SET name = $2, unit = $3, current_stock = $4, min_stock = $5, cost_per_unit_cents = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version
	`, ingredient.ID, ingredient.Name, ingredient.Unit, ingredient.CurrentStock, ingredient.MinStock,
		ingredient.CostPerUnitCents).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	ingredient.Version = version
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ApplySale runs the whole check-and-write as one serializable transaction:
// the touched rows are re-read FOR UPDATE and compared against the versions
// the coordinator validated on; any drift aborts with
// ErrConcurrentModification before a single decrement lands. Infrastructure
// failures surface as ErrCommitFailed, the one case where partial effects
// cannot be ruled out by inspection here.
func (s *Store) ApplySale(ctx context.Context, sale domain.Sale, ded domain.StockDeductions, snap domain.CatalogSnapshot) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCommitFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range mapKeys(ded.Products) {
		var stock, version int64
		err := tx.QueryRowContext(ctx, `
			SELECT stock, version FROM products WHERE id = $1 FOR UPDATE
		`, id).Scan(&stock, &version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrConcurrentModification
			}
			return nil, commitError(err)
		}
		if version != snap.Products[id].Version || stock < ded.Products[id] {
			return nil, store.ErrConcurrentModification
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, version = version + 1, updated_at = now() WHERE id = $1
		`, id, ded.Products[id])
		if err != nil {
			return nil, commitError(err)
		}
	}

	for _, id := range mapKeys(ded.Ingredients) {
		var currentStock, version int64
		err := tx.QueryRowContext(ctx, `
			SELECT current_stock, version FROM ingredients WHERE id = $1 FOR UPDATE
		`, id).Scan(&currentStock, &version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrConcurrentModification
			}
			return nil, commitError(err)
		}
		if version != snap.Ingredients[id].Version || currentStock < ded.Ingredients[id] {
			return nil, store.ErrConcurrentModification
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE ingredients SET current_stock = current_stock - $2, version = version + 1, updated_at = now() WHERE id = $1
		`, id, ded.Ingredients[id])
		if err != nil {
			return nil, commitError(err)
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	sale.CreatedAt = time.Now().UTC()
	if sale.Status == "" {
		sale.Status = domain.SaleStatusPending
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, user_id, subtotal_cents, discount_cents, delivery_cents, total_cents, status, customer_id, shift_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.UserID, sale.SubtotalCents, sale.DiscountCents, sale.DeliveryCents, sale.TotalCents,
		sale.Status, nullIfEmpty(sale.CustomerID), sale.ShiftID, sale.CreatedAt)
	if err != nil {
		return nil, commitError(err)
	}

	for i, item := range sale.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, product_name, category, unit_price_cents, cost_at_sale_cents, quantity, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, sale.ID, i, item.ProductID, item.ProductName, item.Category, item.UnitPriceCents,
			item.CostAtSaleCents, item.Quantity, item.SubtotalCents)
		if err != nil {
			return nil, commitError(err)
		}
	}

	for i, payment := range sale.Payments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_payments (sale_id, position, method, amount_cents)
			VALUES ($1,$2,$3,$4)
		`, sale.ID, i, payment.Method, payment.AmountCents)
		if err != nil {
			return nil, commitError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, commitError(err)
	}

	committed := sale
	return &committed, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, subtotal_cents, discount_cents, delivery_cents, total_cents, status, customer_id, shift_id, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &sale.UserID, &sale.SubtotalCents, &sale.DiscountCents, &sale.DeliveryCents,
		&sale.TotalCents, &sale.Status, &customerID, &sale.ShiftID, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CustomerID = customerID.String

	if err := s.loadSaleDetails(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) loadSaleDetails(ctx context.Context, sale *domain.Sale) error {
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, category, unit_price_cents, cost_at_sale_cents, quantity, subtotal_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position
	`, sale.ID)
	if err != nil {
		return err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleItem
		var costAtSale sql.NullInt64
		if err := itemRows.Scan(&item.ProductID, &item.ProductName, &item.Category, &item.UnitPriceCents,
			&costAtSale, &item.Quantity, &item.SubtotalCents); err != nil {
			return err
		}
		if costAtSale.Valid {
			cost := costAtSale.Int64
			item.CostAtSaleCents = &cost
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	paymentRows, err := s.db.QueryContext(ctx, `
		SELECT method, amount_cents
		FROM sale_payments
		WHERE sale_id = $1
		ORDER BY position
	`, sale.ID)
	if err != nil {
		return err
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		var payment domain.PaymentAllocation
		if err := paymentRows.Scan(&payment.Method, &payment.AmountCents); err != nil {
			return err
		}
		sale.Payments = append(sale.Payments, payment)
	}
	return paymentRows.Err()
}

func (s *Store) ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, subtotal_cents, discount_cents, delivery_cents, total_cents, status, customer_id, shift_id, created_at
		FROM sales
		WHERE shift_id = $1
		ORDER BY created_at
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		var sale domain.Sale
		var customerID sql.NullString
		if err := rows.Scan(&sale.ID, &sale.UserID, &sale.SubtotalCents, &sale.DiscountCents, &sale.DeliveryCents,
			&sale.TotalCents, &sale.Status, &customerID, &sale.ShiftID, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerID = customerID.String
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		if err := s.loadSaleDetails(ctx, &sales[i]); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (s *Store) CreateCashClosure(ctx context.Context, closure domain.CashClosure) (*domain.CashClosure, error) {
	if closure.ID == "" {
		closure.ID = xid.New("closure")
	}
	if closure.ClosedAt.IsZero() {
		closure.ClosedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_closures (
			id, shift_id, closed_by, declared_cash_cents, declared_transfer_cents, declared_total_cents,
			system_cash_cents, system_transfer_cents, system_total_cents, difference_cents, sales_count, status, closed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, closure.ID, closure.ShiftID, closure.ClosedBy, closure.DeclaredCashCents, closure.DeclaredTransferCents,
		closure.DeclaredTotalCents, closure.SystemCashCents, closure.SystemTransferCents, closure.SystemTotalCents,
		closure.DifferenceCents, closure.SalesCount, closure.Status, closure.ClosedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := closure
	return &created, nil
}

func (s *Store) ListCashClosures(ctx context.Context, limit int) ([]domain.CashClosure, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, closed_by, declared_cash_cents, declared_transfer_cents, declared_total_cents,
		       system_cash_cents, system_transfer_cents, system_total_cents, difference_cents, sales_count, status, closed_at
		FROM cash_closures
		ORDER BY closed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closures := make([]domain.CashClosure, 0, limit)
	for rows.Next() {
		var c domain.CashClosure
		if err := rows.Scan(&c.ID, &c.ShiftID, &c.ClosedBy, &c.DeclaredCashCents, &c.DeclaredTransferCents,
			&c.DeclaredTotalCents, &c.SystemCashCents, &c.SystemTransferCents, &c.SystemTotalCents,
			&c.DifferenceCents, &c.SalesCount, &c.Status, &c.ClosedAt); err != nil {
			return nil, err
		}
		closures = append(closures, c)
	}
	return closures, rows.Err()
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
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
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

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// commitError classifies a storage failure inside the sale transaction:
// serialization conflicts are retryable staleness, everything else is an
// infrastructure commit failure.
func commitError(err error) error {
	if isSerializationFailure(err) {
		return store.ErrConcurrentModification
	}
	return fmt.Errorf("%w: %v", store.ErrCommitFailed, err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected.
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// mapKeys returns the ids in sorted order so concurrent transactions always
// lock rows in the same sequence.
func mapKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

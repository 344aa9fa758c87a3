package testutil

import (
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/orderboard_test?parseTime=true&loc=UTC&clientFoundRows=true&time_zone=%27%2B00%3A00%27"

// SetupTestDB opens the test database named by ORDERBOARD_TEST_DSN, falling
// back to a local 'orderboard_test' schema. The test is skipped when it is unreachable.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("ORDERBOARD_TEST_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the order tables, resets the counter and closes db.
func CleanupTestDB(t *testing.T, db *sqlx.DB) {
	t.Helper()

	if db == nil {
		return
	}

	if _, err := db.Exec("DELETE FROM orders"); err != nil {
		t.Logf("failed to clean table orders: %v", err)
	}
	if _, err := db.Exec("UPDATE order_sequence SET current_number = 0 WHERE id = 1"); err != nil {
		t.Logf("failed to reset order_sequence: %v", err)
	}

	db.Close()
}

// SetupTestTables creates the schema the embedded migrations would create and
// starts from an empty board with the counter at zero.
func SetupTestTables(t *testing.T, db *sqlx.DB) {
	t.Helper()

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_number BIGINT NOT NULL,
		quantity TINYINT UNSIGNED NOT NULL,
		status ENUM('pending', 'ready', 'completed') NOT NULL DEFAULT 'pending',
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		deleted_at DATETIME(3) NULL DEFAULT NULL,
		UNIQUE KEY uq_orders_order_number (order_number),
		KEY idx_orders_board (deleted_at, status, created_at)
	)`

	createSequenceTable := `
	CREATE TABLE IF NOT EXISTS order_sequence (
		id INT NOT NULL PRIMARY KEY,
		current_number BIGINT NOT NULL DEFAULT 0
	)`

	statements := []struct {
		name  string
		query string
	}{
		{"orders", createOrdersTable},
		{"order_sequence", createSequenceTable},
		{"order_sequence seed", "INSERT IGNORE INTO order_sequence (id, current_number) VALUES (1, 0)"},
		{"orders reset", "DELETE FROM orders"},
		{"order_sequence reset", "UPDATE order_sequence SET current_number = 0 WHERE id = 1"},
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt.query); err != nil {
			t.Fatalf("failed to prepare %s: %v", stmt.name, err)
		}
	}
}

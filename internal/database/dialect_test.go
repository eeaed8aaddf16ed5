package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN enables foreign keys", func(t *testing.T) {
		dsn := dialect.DSN(DialectConfig{Path: "/tmp/planner.db"})
		expected := "file:/tmp/planner.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
		if dsn != expected {
			t.Errorf("DSN() = %v, want %v", dsn, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})

	t.Run("DSN adds parseTime", func(t *testing.T) {
		tests := map[string]string{
			"user:pw@tcp(db:3306)/planner":                      "user:pw@tcp(db:3306)/planner?parseTime=true",
			"user:pw@tcp(db:3306)/planner?charset=utf8mb4":      "user:pw@tcp(db:3306)/planner?charset=utf8mb4&parseTime=true",
			"user:pw@tcp(db:3306)/planner?parseTime=false&x=1": "user:pw@tcp(db:3306)/planner?parseTime=false&x=1",
		}
		for in, want := range tests {
			if got := dialect.DSN(DialectConfig{URL: in}); got != want {
				t.Errorf("DSN(%q) = %v, want %v", in, got, want)
			}
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM tasks WHERE id = ?",
			expected: "SELECT * FROM tasks WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM tasks WHERE id = ?",
			expected: "SELECT * FROM tasks WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO plans (user_id, plan_date) VALUES (?, ?)",
			expected: "INSERT INTO plans (user_id, plan_date) VALUES ($1, $2)",
		},
		{
			name:     "PostgreSQL skips quoted question marks",
			dialect:  NewPostgresDialect(),
			query:    "SELECT id FROM tasks WHERE name = '?' AND notes <> 'it''s ?' AND \"odd?\" = ? AND id = ?",
			expected: "SELECT id FROM tasks WHERE name = '?' AND notes <> 'it''s ?' AND \"odd?\" = $1 AND id = $2",
		},
		{
			name:     "PostgreSQL skips line comments",
			dialect:  NewPostgresDialect(),
			query:    "-- owner?\nSELECT id FROM tasks WHERE user_id = ?",
			expected: "-- owner?\nSELECT id FROM tasks WHERE user_id = $1",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE tasks SET status = ?, due_date = ? WHERE id = ?",
			expected: "UPDATE tasks SET status = ?, due_date = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInsertIgnore(t *testing.T) {
	insert := "INSERT INTO applied_events (user_id, event_key) VALUES (?, ?);"

	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "SQLite",
			dialect:  NewSQLiteDialect(),
			expected: "INSERT INTO applied_events (user_id, event_key) VALUES (?, ?) ON CONFLICT DO NOTHING",
		},
		{
			name:     "PostgreSQL",
			dialect:  NewPostgresDialect(),
			expected: "INSERT INTO applied_events (user_id, event_key) VALUES (?, ?) ON CONFLICT DO NOTHING",
		},
		{
			name:     "MySQL",
			dialect:  NewMySQLDialect(),
			expected: "INSERT IGNORE INTO applied_events (user_id, event_key) VALUES (?, ?);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.InsertIgnore(insert); got != tt.expected {
				t.Errorf("InsertIgnore() = %v, want %v", got, tt.expected)
			}
		})
	}
}

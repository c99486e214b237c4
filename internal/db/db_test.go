package db

import (
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/zulandar/folio/internal/config"
	"github.com/zulandar/folio/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		user string
		pass string
		addr string
		db   string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Name: "folio"},
			user: "root",
			addr: "127.0.0.1:3306",
			db:   "folio",
		},
		{
			name: "password and custom port",
			cfg:  config.DatabaseConfig{Host: "10.0.0.5", Port: 3307, User: "folio", Password: "s3cret", Name: "folio_prod"},
			user: "folio",
			pass: "s3cret",
			addr: "10.0.0.5:3307",
			db:   "folio_prod",
		},
		{
			name: "ipv6 host",
			cfg:  config.DatabaseConfig{Host: "::1", Port: 3306, User: "root", Name: "folio"},
			user: "root",
			addr: "[::1]:3306",
			db:   "folio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := DSN(tt.cfg)
			parsed, err := gomysql.ParseDSN(dsn)
			if err != nil {
				t.Fatalf("ParseDSN(%q): %v", dsn, err)
			}
			if parsed.User != tt.user || parsed.Passwd != tt.pass {
				t.Errorf("credentials = %s/%s, want %s/%s", parsed.User, parsed.Passwd, tt.user, tt.pass)
			}
			if parsed.Addr != tt.addr {
				t.Errorf("Addr = %q, want %q", parsed.Addr, tt.addr)
			}
			if parsed.DBName != tt.db {
				t.Errorf("DBName = %q, want %q", parsed.DBName, tt.db)
			}
			if !parsed.ParseTime {
				t.Error("ParseTime should be set")
			}
			if !parsed.ClientFoundRows {
				t.Error("ClientFoundRows should be set")
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN("folio.db"); got != "folio.db?_foreign_keys=1" {
		t.Errorf("SQLiteDSN = %q", got)
	}
	if got := SQLiteDSN("file:x.db?cache=shared"); got != "file:x.db?cache=shared&_foreign_keys=1" {
		t.Errorf("SQLiteDSN = %q", got)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"})
	if err == nil || !strings.Contains(err.Error(), `unsupported driver "oracle"`) {
		t.Errorf("err = %v", err)
	}
}

func TestConnect_MySQLError(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Connect(config.DatabaseConfig{Driver: "mysql", Host: "127.0.0.1", Port: 1, User: "root", Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestAllModels_Count(t *testing.T) {
	if n := len(AllModels()); n != 10 {
		t.Errorf("AllModels() returned %d models, want 10", n)
	}
}

func TestMigrateAndDrop_SQLite(t *testing.T) {
	gdb, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { Close(gdb) })

	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// Idempotent.
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
	for _, table := range []string{"resumes", "projects", "experiences", "artifacts", "resume_projects", "messages", "kanban_stages", "kanban_tickets", "uploads"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s missing after migrate", table)
		}
	}

	if err := DropAll(gdb); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if gdb.Migrator().HasTable("resumes") {
		t.Error("resumes should be dropped")
	}
}

func TestForeignKeys_Cascade(t *testing.T) {
	gdb, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { Close(gdb) })
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	r := models.Resume{Slug: "main", Title: "Main"}
	p := models.Project{Title: "Folio"}
	if err := gdb.Create(&r).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	link := models.ResumeProject{ResumeID: r.ID, ProjectID: p.ID}
	if err := gdb.Create(&link).Error; err != nil {
		t.Fatal(err)
	}

	if err := gdb.Delete(&models.Project{}, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("delete project: %v", err)
	}
	var n int64
	gdb.Model(&models.ResumeProject{}).Count(&n)
	if n != 0 {
		t.Errorf("resume_projects = %d after project delete, want 0", n)
	}
}

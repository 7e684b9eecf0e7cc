package store

import (
	"context"
	"path/filepath"
	"testing"

	"smartkids/internal/config"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name      string
		storeType string
		wantSQL   bool
	}{
		{name: "file", storeType: config.StoreFile},
		{name: "sqlite", storeType: config.StoreSQLite, wantSQL: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{
				StoreType:        tt.storeType,
				DataDir:          filepath.Join(dir, "players"),
				DatabasePath:     filepath.Join(dir, "db", "smartkids.db"),
				HistoryRetention: 20,
			}
			s, closeFn, err := Open(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer closeFn()

			if _, isSQL := s.(*SQLStore); isSQL != tt.wantSQL {
				t.Errorf("Open() returned %T", s)
			}
			p := sampleProfile("mia")
			if err := s.Save(context.Background(), p); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			names, err := s.ListPlayers(context.Background())
			if err != nil || len(names) != 1 {
				t.Errorf("ListPlayers() = %v, %v", names, err)
			}
		})
	}

	if _, _, err := Open(context.Background(), &config.Config{StoreType: "redis"}); err == nil {
		t.Error("Open() with unknown store type should fail")
	}
}

package mariadb

import "testing"

func TestNewPool_InvalidDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{"empty", ""},
		{"missing database separator", "classroll:secret@tcp(localhost:3306)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(tt.dsn)
			if err == nil {
				pool.Close()
				t.Fatal("expected error")
			}
		})
	}
}

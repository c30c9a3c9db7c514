package history

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/storage"
)

const employeeInfoKey = "employee_info"

// LoadEmployeeInfo returns the cached employee context, or nil.
func (s *Store) LoadEmployeeInfo(ctx context.Context) *domain.EmployeeInfo {
	raw, err := s.storage.Get(ctx, employeeInfoKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.Error("load employee info", "error", err)
		return nil
	}
	var info domain.EmployeeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		slog.Error("decode employee info", "error", err)
		return nil
	}
	return &info
}

func (s *Store) SaveEmployeeInfo(ctx context.Context, info domain.EmployeeInfo) {
	data, err := json.Marshal(info)
	if err != nil {
		slog.Error("encode employee info", "error", err)
		return
	}
	if err := s.storage.Set(ctx, employeeInfoKey, string(data)); err != nil {
		slog.Error("save employee info", "error", err)
	}
}

func (s *Store) DeleteEmployeeInfo(ctx context.Context) {
	if err := s.storage.Delete(ctx, employeeInfoKey); err != nil {
		slog.Error("delete employee info", "error", err)
	}
}

package admin

import (
	"context"
	"strings"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
)

// DepartmentAdder creates a department, returning the existing one when the
// name and region are already taken.
type DepartmentAdder interface {
	AddDepartment(ctx context.Context, name, region string) (model.Department, error)
}

// AddDepartment validates a partition and stores it with its region as a
// two-letter state code.
func AddDepartment(ctx context.Context, st DepartmentAdder, name, region string) (model.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Department{}, &core.FieldError{Field: "name", Message: "is required"}
	}
	code, err := core.ParseState("region", region)
	if err != nil {
		return model.Department{}, err
	}
	if !code.Valid {
		return model.Department{}, &core.FieldError{Field: "region", Message: "is required"}
	}
	return st.AddDepartment(ctx, name, code.String)
}

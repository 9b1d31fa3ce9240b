package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	dErrors "safeshift/pkg/domain-errors"
)

// Wellness bands on the 0-100 department scale. An employee score of 1-10
// maps onto it by multiplying by ten.
const (
	WellnessExcellentMin = 80
	WellnessGoodMin      = 50
	WellnessFairMin      = 30
)

// WellnessBand names the band a 0-100 score falls in.
func WellnessBand(score int) string {
	switch {
	case score >= WellnessExcellentMin:
		return "Excellent"
	case score >= WellnessGoodMin:
		return "Good"
	case score >= WellnessFairMin:
		return "Fair"
	default:
		return "Needs attention"
	}
}

// WellnessScore is one calculated employee score on a 1-10 scale. Factors
// hold the 0-100 sub-scores it was derived from.
type WellnessScore struct {
	ID           string         `json:"id"`
	EmployeeID   string         `json:"employee_id"`
	Score        int            `json:"score"`
	Factors      map[string]int `json:"factors,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// DepartmentWellness is the GET /departments/{id}/wellness response.
type DepartmentWellness struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	WellnessScore  int    `json:"wellness_score"`
	TotalEmployees int    `json:"total_employees"`
	Trend          string `json:"trend"`
}

// Wellness returns the employee's latest score. CodeNotFound means none has
// been calculated yet.
func (c *Client) Wellness(ctx context.Context, employeeID string) (*WellnessScore, error) {
	if employeeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	var w WellnessScore
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/wellness/" + url.PathEscape(employeeID),
		route:  "/wellness/{employee_id}",
		out:    &w,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CalculateWellness asks the server to score the employee now.
func (c *Client) CalculateWellness(ctx context.Context, employeeID string) (*WellnessScore, error) {
	if employeeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	var w WellnessScore
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/wellness/calculate/" + url.PathEscape(employeeID),
		route:  "/wellness/calculate/{employee_id}",
		out:    &w,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) DepartmentWellness(ctx context.Context, departmentID string) (*DepartmentWellness, error) {
	if departmentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "department id is required")
	}
	var d DepartmentWellness
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/departments/" + url.PathEscape(departmentID) + "/wellness",
		route:  "/departments/{id}/wellness",
		out:    &d,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package ops

import (
	"context"

	"github.com/MrCreosote/contigfilter/internal/assembly"
)

// ReportStore reads published reports. *gateway.LocalStore implements it.
type ReportStore interface {
	GetReport(ctx context.Context, ref string) (*assembly.Report, error)
	ListReports(ctx context.Context, limit, offset int) ([]assembly.Report, int, error)
}

// ListReportsInput contains parameters for the ListReports operation.
type ListReportsInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListReportsOutput contains the result of the ListReports operation.
type ListReportsOutput struct {
	Items      []assembly.Report `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// ListReports retrieves published reports newest first with pagination.
func ListReports(ctx context.Context, store ReportStore, input ListReportsInput) (*ListReportsOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset)

	items, total, err := store.ListReports(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []assembly.Report{}
	}

	return &ListReportsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// GetReport retrieves one report by reference.
func GetReport(ctx context.Context, store ReportStore, ref string) (*assembly.Report, error) {
	return store.GetReport(ctx, ref)
}

package analyzer

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pageRange is a 1-based inclusive page span within a PDF.
type pageRange struct {
	Start int
	End   int
}

// chunkRanges splits totalPages into consecutive spans of at most chunkPages
// pages each. The last span may be shorter. Pure function.
func chunkRanges(totalPages int, chunkPages int) []pageRange {
	if totalPages <= 0 || chunkPages <= 0 {
		return nil
	}
	ranges := make([]pageRange, 0, (totalPages+chunkPages-1)/chunkPages)
	for start := 1; start <= totalPages; start += chunkPages {
		end := start + chunkPages - 1
		if end > totalPages {
			end = totalPages
		}
		ranges = append(ranges, pageRange{Start: start, End: end})
	}
	return ranges
}

func pdfPageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return count, nil
}

// extractPageRange writes a new PDF containing only the pages in r.
func extractPageRange(data []byte, r pageRange) ([]byte, error) {
	var out bytes.Buffer
	selection := []string{fmt.Sprintf("%d-%d", r.Start, r.End)}
	if err := api.Trim(bytes.NewReader(data), &out, selection, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("extract pages %d-%d: %w", r.Start, r.End, err)
	}
	return out.Bytes(), nil
}

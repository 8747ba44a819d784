package http

import (
	"net/http"

	"jichul/internal/core"
)

type statisticsResponse struct {
	TotalAmount    core.Money       `json:"total_amount"`
	MerchantTotals []map[string]any `json:"merchant_totals"`
	PaymentTotals  []map[string]any `json:"payment_totals"`
	CycleTotals    []map[string]any `json:"cycle_totals"`
}

// groupRows renames each group key to the field it was grouped by.
func groupRows(field string, groups []core.GroupTotal) []map[string]any {
	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{field: g.Key, "total": g.Total})
	}
	return out
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Statistics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse{
		TotalAmount:    stats.TotalAmount,
		MerchantTotals: groupRows("merchant", stats.MerchantTotals),
		PaymentTotals:  groupRows("payment_method", stats.PaymentTotals),
		CycleTotals:    groupRows("payment_cycle", stats.CycleTotals),
	})
}

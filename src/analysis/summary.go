package analysis

import (
	"sort"

	"github.com/ahfrd/grpc-stream-client-side/src/models"
)

// -----------------------------------------------------------------------------
// Batch derived statistics
// -----------------------------------------------------------------------------

// ComputeSummary derives breadth statistics from one record batch. The batch
// replaces the previous one, so the summary is recomputed from scratch.
func ComputeSummary(instruments []models.MInstrument) models.MMarketSummary {
	summary := models.MMarketSummary{Instruments: len(instruments)}

	for _, inst := range instruments {
		switch {
		case inst.Change > 0:
			summary.Advancing++
		case inst.Change < 0:
			summary.Declining++
		default:
			summary.Unchanged++
		}
		summary.TotalVolume += inst.TotalVolume
		summary.TotalValue += inst.Value
		summary.TotalFreq += inst.TotalFreq
	}

	return summary
}

// -----------------------------------------------------------------------------

// TopMovers returns up to n gainers and n losers ranked by percent change.
// Flat instruments appear in neither list.
func TopMovers(instruments []models.MInstrument, n int) (gainers []models.MInstrument, losers []models.MInstrument) {
	if n <= 0 || len(instruments) == 0 {
		return nil, nil
	}

	ranked := make([]models.MInstrument, len(instruments))
	copy(ranked, instruments)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PercentChange > ranked[j].PercentChange
	})

	for i := 0; i < len(ranked) && len(gainers) < n; i++ {
		if ranked[i].PercentChange <= 0 {
			break
		}
		gainers = append(gainers, ranked[i])
	}
	for i := len(ranked) - 1; i >= 0 && len(losers) < n; i-- {
		if ranked[i].PercentChange >= 0 {
			break
		}
		losers = append(losers, ranked[i])
	}

	return gainers, losers
}

// Package delivery decides how a resolved media descriptor is served:
// proxied straight from the source, or fetched and transcoded locally.
package delivery

import (
	"sort"

	"github.com/mrb-labs/videograb/internal/domain"
)

// SelectBest picks the best progressive stream from the descriptor, or nil
// when none qualifies. A stream qualifies when it is progressive-playable
// and carries a direct source URL. Ranking is height descending, then
// bitrate descending; the sort is stable so input order breaks ties.
func SelectBest(desc *domain.MediaDescriptor) *domain.CandidateStream {
	var candidates []domain.CandidateStream
	for _, f := range desc.Formats {
		if f.IsProgressive() && f.SourceURL != "" {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Height != candidates[j].Height {
			return candidates[i].Height > candidates[j].Height
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})

	best := candidates[0]
	return &best
}

// Plan maps a descriptor to a delivery plan. A descriptor with no formats at
// all is unsupported; one with formats but no progressive stream goes down
// the fetch-transcode path. No stream is ever selected for proxying unless
// it satisfies the progressive invariant.
func Plan(desc *domain.MediaDescriptor, underscores bool) domain.DeliveryPlan {
	if len(desc.Formats) == 0 {
		return domain.DeliveryPlan{Kind: domain.PlanUnsupported}
	}

	filename := domain.SanitizeFilename(desc.DisplayTitle(), "mp4", underscores)

	if best := SelectBest(desc); best != nil {
		return domain.DeliveryPlan{
			Kind:     domain.PlanProxyDirect,
			Stream:   best,
			Filename: filename,
		}
	}

	return domain.DeliveryPlan{
		Kind:     domain.PlanFetchTranscode,
		Filename: filename,
	}
}

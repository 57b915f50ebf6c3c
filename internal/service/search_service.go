package service

import (
	"context"

	"birdtag/api/internal/models"
	"birdtag/api/internal/tags"
)

type searchStore interface {
	ListWithAllSpecies(ctx context.Context, species []string) ([]models.MediaRecord, error)
	ListWithAnySpecies(ctx context.Context, species []string) ([]models.MediaRecord, error)
}

// SearchService answers the two search modes over the species-count
// maps: threshold-AND (every queried species at or above its minimum)
// and presence-OR (any queried species present at all).
type SearchService struct {
	media searchStore
}

func NewSearchService(media searchStore) *SearchService {
	return &SearchService{media: media}
}

// SearchByThresholds returns result links for records satisfying every
// condition. The store narrows to records carrying all queried species;
// the exact count thresholds are applied here.
func (s *SearchService) SearchByThresholds(ctx context.Context, conds []tags.Condition) ([]string, error) {
	species := make([]string, 0, len(conds))
	for _, c := range conds {
		species = append(species, c.Species)
	}

	candidates, err := s.media.ListWithAllSpecies(ctx, species)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(candidates))
	for _, rec := range candidates {
		if !tags.MatchesThreshold(rec.Tags, conds) {
			continue
		}
		if link := rec.Link(); link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

// SearchBySpecies returns result links for records containing at least
// one of the given species, counts ignored beyond presence.
func (s *SearchService) SearchBySpecies(ctx context.Context, species []string) ([]string, error) {
	matches, err := s.media.ListWithAnySpecies(ctx, species)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(matches))
	for _, rec := range matches {
		if link := rec.Link(); link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

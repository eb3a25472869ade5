package advice

import (
	"sort"
	"strings"

	"github.com/lox/fishingadvice/internal/models"
)

const DefaultTopN = 10

// Field selects which categorical attribute of an observation is ranked.
type Field int

const (
	FieldMethods Field = iota
	FieldFlies
	FieldSpots
)

func (f Field) String() string {
	switch f {
	case FieldMethods:
		return "methods"
	case FieldFlies:
		return "flies"
	case FieldSpots:
		return "spots"
	default:
		return "unknown"
	}
}

func (f Field) values(obs models.Observation) []string {
	switch f {
	case FieldMethods:
		return obs.Methods
	case FieldFlies:
		return obs.Flies
	case FieldSpots:
		return obs.Spots
	default:
		return nil
	}
}

// Rank accumulates raw mention counts and weighted scores per exact name,
// then returns the top N by score. Ties keep first-seen order.
func Rank(observations []models.Observation, field Field, weigher *Weigher, topN int) []models.RankedItem {
	if topN <= 0 {
		topN = DefaultTopN
	}

	index := make(map[string]int)
	items := make([]models.RankedItem, 0)

	for _, obs := range observations {
		values := field.values(obs)
		if len(values) == 0 {
			continue
		}
		w := weigher.Of(obs)
		for _, name := range values {
			if strings.TrimSpace(name) == "" {
				continue
			}
			i, ok := index[name]
			if !ok {
				i = len(items)
				index[name] = i
				items = append(items, models.RankedItem{Name: name})
			}
			items[i].Frequency++
			items[i].Score += w
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if len(items) > topN {
		items = items[:topN]
	}
	return items
}

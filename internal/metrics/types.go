package metrics

import "context"

// Point is one keyed sample with named numeric values.
// Params: key string and variable->value map.
// Returns: one scrape sample entity.
type Point struct {
	Key    string
	Values map[string]float64
}

// Collector scrapes one source and returns keyed points.
// Params: context for cancellation and deadlines.
// Returns: point list or scrape error.
type Collector interface {
	Name() string
	Scrape(ctx context.Context) ([]Point, error)
}

package models

// -----------------------------------------------------------------------------
// Subscription Parameters
// -----------------------------------------------------------------------------

// Known board filters accepted by the feed.
const (
	FilterAll       = "all"
	FilterIDX30     = "idx30"
	FilterLQ45      = "lq45"
	FilterIDX80     = "idx80"
	FilterKompas100 = "kompas100"
)

// Known sort keys accepted by the feed.
const (
	SortByCode          = "code"
	SortByPrice         = "price"
	SortByChange        = "change"
	SortByPercentChange = "percent_change"
	SortByTotalVolume   = "total_volume"
	SortByValue         = "value"
	SortByTotalFreq     = "total_freq"
)

// MSubscriptionParams selects which slice of the board a session streams and
// how the feed orders it. Two values are interchangeable iff both fields match.
type MSubscriptionParams struct {
	Filter  string `json:"filter" yaml:"filter"`
	SortKey string `json:"sort_key" yaml:"sort_key"`
}

// Equal reports whether p and other request the same stream.
func (p MSubscriptionParams) Equal(other MSubscriptionParams) bool {
	return p.Filter == other.Filter && p.SortKey == other.SortKey
}

// Valid reports whether both fields are members of their known sets.
func (p MSubscriptionParams) Valid() bool {
	return knownFilters[p.Filter] && knownSortKeys[p.SortKey]
}

var knownFilters = map[string]bool{
	FilterAll:       true,
	FilterIDX30:     true,
	FilterLQ45:      true,
	FilterIDX80:     true,
	FilterKompas100: true,
}

var knownSortKeys = map[string]bool{
	SortByCode:          true,
	SortByPrice:         true,
	SortByChange:        true,
	SortByPercentChange: true,
	SortByTotalVolume:   true,
	SortByValue:         true,
	SortByTotalFreq:     true,
}

// KnownFilters lists the accepted board filters in display order.
func KnownFilters() []string {
	return []string{FilterAll, FilterIDX30, FilterLQ45, FilterIDX80, FilterKompas100}
}

// KnownSortKeys lists the accepted sort keys in display order.
func KnownSortKeys() []string {
	return []string{SortByCode, SortByPrice, SortByChange, SortByPercentChange, SortByTotalVolume, SortByValue, SortByTotalFreq}
}

// DefaultSubscriptionParams is what a fresh client subscribes with before the
// user picks anything.
func DefaultSubscriptionParams() MSubscriptionParams {
	return MSubscriptionParams{Filter: FilterAll, SortKey: SortByCode}
}

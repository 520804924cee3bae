package domain

// KeyPrefix is prepended to every store key.
const KeyPrefix = "strukt:"

// Global limits.
const (
	// MaxFieldsPerCollection caps the number of field definitions per collection type.
	MaxFieldsPerCollection = 50
	// MaxOrderByKeys caps the number of orderBy pairs in a query.
	MaxOrderByKeys = 3
	// DefaultQueryLimit is the page size when a query specifies none.
	DefaultQueryLimit = 50
)

package domain

import "fmt"

// Metric is the similarity metric of a vector collection.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dotproduct"
)

// CreatePolicy controls what happens when a collection with the same
// name already exists. The caller must pick one explicitly.
type CreatePolicy string

const (
	// CreatePolicyReuse keeps the existing collection and its records.
	CreatePolicyReuse CreatePolicy = "reuse"

	// CreatePolicyRecreate deletes the existing collection and creates
	// a fresh empty one, discarding its records.
	CreatePolicyRecreate CreatePolicy = "recreate"

	// CreatePolicyFailIfExists returns ErrCollectionExists when the
	// name is already taken.
	CreatePolicyFailIfExists CreatePolicy = "fail_if_exists"
)

// Valid reports whether the policy is one of the known values.
func (p CreatePolicy) Valid() bool {
	switch p {
	case CreatePolicyReuse, CreatePolicyRecreate, CreatePolicyFailIfExists:
		return true
	}
	return false
}

// Collection describes a named vector collection.
type Collection struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

// Validate checks the collection spec before creation.
func (c Collection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive", ErrInvalidInput)
	}
	switch c.Metric {
	case MetricCosine, MetricEuclidean, MetricDotProduct:
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, c.Metric)
	}
	return nil
}

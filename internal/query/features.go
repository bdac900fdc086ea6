// Package query translates a flat HTTP query string into a staged MongoDB
// retrieval request: filter, sort, field projection and pagination. It
// performs no I/O and produces no errors of its own; invalid descriptors
// surface from the store when the request executes.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Parameters with pipeline meaning; these never leak into the filter.
var reservedParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

// Comparison suffixes accepted in keys of the form field[op], rewritten to
// the store's native $-operators.
var comparisonOps = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

const (
	defaultPage  = 1
	defaultLimit = 100

	createdAtField = "created_at"

	// Revision key stamped on documents by the previous deployment's ODM;
	// excluded from responses unless the caller projects explicitly.
	versionKey = "__v"
)

// Features is a fluent builder over an incoming query-parameter mapping.
// Each stage mutates and returns the receiver and is idempotent: re-applying
// a stage with the same parameters yields the same result.
type Features struct {
	params url.Values

	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Page       int64
	Limit      int64
}

func New(params url.Values) *Features {
	return &Features{
		params: params,
		Filter: bson.M{},
		Page:   defaultPage,
		Limit:  defaultLimit,
	}
}

// ApplyFilter copies the parameter mapping minus reserved keys into a Mongo
// filter, rewriting comparison suffixes (price[gte]=100 becomes
// {price: {$gte: 100}}). Repeated plain keys become an $in clause. Numeric
// values are coerced; anything else passes through uninterpreted for the
// store to accept or reject.
func (f *Features) ApplyFilter() *Features {
	filter := bson.M{}
	for key, values := range f.params {
		field, op := splitComparison(key)
		if reservedParams[field] || len(values) == 0 {
			continue
		}
		if op != "" {
			clause, ok := filter[field].(bson.M)
			if !ok {
				clause = bson.M{}
				filter[field] = clause
			}
			clause[op] = coerce(values[0])
			continue
		}
		if len(values) > 1 {
			in := make([]interface{}, len(values))
			for i, v := range values {
				in[i] = coerce(v)
			}
			filter[field] = bson.M{"$in": in}
			continue
		}
		filter[field] = coerce(values[0])
	}
	f.Filter = filter
	return f
}

// ApplySort builds the sort order from the comma-separated sort parameter,
// with a leading '-' marking descending. Multiple fields tie-break left to
// right. Without a sort parameter the order is newest first.
func (f *Features) ApplySort() *Features {
	raw := f.params.Get("sort")
	if raw == "" {
		f.Sort = bson.D{{Key: createdAtField, Value: -1}}
		return f
	}

	sort := bson.D{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = field[1:]
		}
		if field != "" {
			sort = append(sort, bson.E{Key: field, Value: direction})
		}
	}
	if len(sort) == 0 {
		sort = bson.D{{Key: createdAtField, Value: -1}}
	}
	f.Sort = sort
	return f
}

// Project builds the field projection from the comma-separated fields
// parameter as an inclusion set; without one, all fields are returned except
// the internal version key.
func (f *Features) Project() *Features {
	raw := f.params.Get("fields")
	if raw == "" {
		f.Projection = bson.M{versionKey: 0}
		return f
	}

	projection := bson.M{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field != "" {
			projection[field] = 1
		}
	}
	if len(projection) == 0 {
		projection = bson.M{versionKey: 0}
	}
	f.Projection = projection
	return f
}

// Paginate parses page and limit as positive integers, defaulting to page 1
// and 100 records. No upper bound is enforced on limit here; callers needing
// abuse prevention enforce it upstream.
func (f *Features) Paginate() *Features {
	f.Page = positiveInt(f.params.Get("page"), defaultPage)
	f.Limit = positiveInt(f.params.Get("limit"), defaultLimit)
	return f
}

// Skip is the zero-based offset of the current window.
func (f *Features) Skip() int64 {
	return (f.Page - 1) * f.Limit
}

// MergedFilter overlays the built filter onto base clauses (nested-route
// scoping, secret-tour exclusion). Base keys win so callers' constraints
// cannot be overridden from the query string.
func (f *Features) MergedFilter(base bson.M) bson.M {
	merged := bson.M{}
	for k, v := range f.Filter {
		merged[k] = v
	}
	for k, v := range base {
		merged[k] = v
	}
	return merged
}

// FindOptions assembles the staged sort, projection and window into find
// options for the Mongo driver.
func (f *Features) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(f.Sort) > 0 {
		opts.SetSort(f.Sort)
	}
	if len(f.Projection) > 0 {
		opts.SetProjection(f.Projection)
	}
	opts.SetSkip(f.Skip())
	opts.SetLimit(f.Limit)
	return opts
}

// splitComparison recognizes keys of the form field[op] for the supported
// comparison suffixes; any other bracketed key is left untouched.
func splitComparison(key string) (field, op string) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	suffix := key[open+1 : len(key)-1]
	mongoOp, ok := comparisonOps[suffix]
	if !ok {
		return key, ""
	}
	return key[:open], mongoOp
}

// coerce converts numeric-looking values so comparisons behave numerically;
// everything else stays a string for the store to interpret.
func coerce(v string) interface{} {
	if v == "" {
		return v
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(v, 64); err == nil {
		return x
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func positiveInt(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

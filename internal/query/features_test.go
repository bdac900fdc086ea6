package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func parse(t *testing.T, raw string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	return v
}

func TestApplyFilter_ReservedKeysNeverLeak(t *testing.T) {
	f := New(parse(t, "page=2&sort=price&limit=10&fields=name&difficulty=easy")).ApplyFilter()

	assert.Equal(t, bson.M{"difficulty": "easy"}, f.Filter)
	for _, reserved := range []string{"page", "sort", "limit", "fields"} {
		if _, ok := f.Filter[reserved]; ok {
			t.Fatalf("reserved key %q leaked into filter", reserved)
		}
	}
}

func TestApplyFilter_ComparisonRewrite(t *testing.T) {
	f := New(parse(t, "price[gte]=100&price[lt]=500&duration[lte]=7&ratings_average[gt]=4.5")).ApplyFilter()

	assert.Equal(t, bson.M{
		"price":           bson.M{"$gte": int64(100), "$lt": int64(500)},
		"duration":        bson.M{"$lte": int64(7)},
		"ratings_average": bson.M{"$gt": 4.5},
	}, f.Filter)
}

func TestApplyFilter_NonNumericComparisonPassesThrough(t *testing.T) {
	f := New(parse(t, "price[gte]=cheap")).ApplyFilter()

	// Malformed values are forwarded uninterpreted; the store rejects them.
	assert.Equal(t, bson.M{"price": bson.M{"$gte": "cheap"}}, f.Filter)
}

func TestApplyFilter_UnknownSuffixIsNotAnOperator(t *testing.T) {
	f := New(parse(t, "price[regex]=5")).ApplyFilter()

	assert.Equal(t, bson.M{"price[regex]": int64(5)}, f.Filter)
}

func TestApplyFilter_RepeatedKeyBecomesIn(t *testing.T) {
	f := New(parse(t, "difficulty=easy&difficulty=medium")).ApplyFilter()

	assert.Equal(t, bson.M{"difficulty": bson.M{"$in": []interface{}{"easy", "medium"}}}, f.Filter)
}

func TestApplyFilter_Idempotent(t *testing.T) {
	f := New(parse(t, "price[gte]=100&difficulty=easy"))
	first := f.ApplyFilter().Filter
	second := f.ApplyFilter().Filter

	assert.Equal(t, first, second)
}

func TestApplySort_Default(t *testing.T) {
	f := New(parse(t, "difficulty=easy")).ApplySort()

	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}}, f.Sort)
}

func TestApplySort_MultiFieldWithDirections(t *testing.T) {
	f := New(parse(t, "sort=-ratings_average,price")).ApplySort()

	assert.Equal(t, bson.D{
		{Key: "ratings_average", Value: -1},
		{Key: "price", Value: 1},
	}, f.Sort)
}

func TestProject_DefaultExcludesVersionKey(t *testing.T) {
	f := New(parse(t, "")).Project()

	assert.Equal(t, bson.M{"__v": 0}, f.Projection)
}

func TestProject_InclusionSet(t *testing.T) {
	f := New(parse(t, "fields=name,price,ratings_average")).Project()

	assert.Equal(t, bson.M{"name": 1, "price": 1, "ratings_average": 1}, f.Projection)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPage  int64
		wantLimit int64
		wantSkip  int64
	}{
		{"defaults", "", 1, 100, 0},
		{"second page", "page=2&limit=10", 2, 10, 10},
		{"zero page falls back", "page=0&limit=10", 1, 10, 0},
		{"negative page falls back", "page=-3", 1, 100, 0},
		{"garbage page falls back", "page=abc&limit=10", 1, 10, 0},
		{"no limit cap", "page=1&limit=100000", 1, 100000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(parse(t, tt.raw)).Paginate()
			if f.Page != tt.wantPage || f.Limit != tt.wantLimit || f.Skip() != tt.wantSkip {
				t.Fatalf("got page=%d limit=%d skip=%d, want page=%d limit=%d skip=%d",
					f.Page, f.Limit, f.Skip(), tt.wantPage, tt.wantLimit, tt.wantSkip)
			}
		})
	}
}

func TestMergedFilter_BaseWins(t *testing.T) {
	f := New(parse(t, "secret=true&difficulty=easy")).ApplyFilter()
	merged := f.MergedFilter(bson.M{"secret": bson.M{"$ne": true}})

	assert.Equal(t, bson.M{"$ne": true}, merged["secret"])
	assert.Equal(t, "easy", merged["difficulty"])
}

func TestFindOptions_CarriesWindow(t *testing.T) {
	f := New(parse(t, "page=3&limit=20")).ApplyFilter().ApplySort().Project().Paginate()
	opts := f.FindOptions()

	if opts.Skip == nil || *opts.Skip != 40 {
		t.Fatalf("skip = %v, want 40", opts.Skip)
	}
	if opts.Limit == nil || *opts.Limit != 20 {
		t.Fatalf("limit = %v, want 20", opts.Limit)
	}
}

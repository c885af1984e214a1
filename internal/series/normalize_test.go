package series

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/rotationlab/rotation-data/internal/api"
)

func ts(offset int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Hour)
}

func f(v float64) *float64 {
	return &v
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
}

func TestNormalizePercentChange(t *testing.T) {
	obs := []Observation{
		{Timestamp: ts(0), Price: 90},
		{Timestamp: ts(1), Price: 100},
		{Timestamp: ts(2), Price: 95},
	}

	points := Normalize(obs)
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}

	if points[0].PercentChange != 0 {
		t.Errorf("first point change = %v, want 0", points[0].PercentChange)
	}
	if points[1].PercentChange != 11.11 {
		t.Errorf("points[1].PercentChange = %v, want 11.11", points[1].PercentChange)
	}
	if points[2].PercentChange != -5.0 {
		t.Errorf("points[2].PercentChange = %v, want -5.0", points[2].PercentChange)
	}
}

func TestNormalizeSortsByTimestamp(t *testing.T) {
	obs := []Observation{
		{Timestamp: ts(2), Price: 95},
		{Timestamp: ts(0), Price: 90},
		{Timestamp: ts(1), Price: 100},
	}

	points := Normalize(obs)
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			t.Fatalf("points out of order at %d: %v before %v", i, points[i].Timestamp, points[i-1].Timestamp)
		}
	}
	if points[0].Price != 90 {
		t.Errorf("points[0].Price = %v, want the earliest observation", points[0].Price)
	}
}

// TestNormalizeOrderIdempotent feeds the same observation set in shuffled
// orders and requires identical output every time.
func TestNormalizeOrderIdempotent(t *testing.T) {
	obs := []Observation{
		{Timestamp: ts(0), Price: 50},
		{Timestamp: ts(1), Price: 55},
		{Timestamp: ts(1), Price: 52},
		{Timestamp: ts(2), Price: 53},
		{Timestamp: ts(3), Price: 60},
		{Timestamp: ts(3), Price: 60},
		{Timestamp: ts(4), Price: 58},
	}

	want := Normalize(obs)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 20; i++ {
		shuffled := make([]Observation, len(obs))
		copy(shuffled, obs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		if got := Normalize(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d changed output:\ngot  %+v\nwant %+v", i, got, want)
		}
	}
}

// TestNormalizeTiedTimestamps pins the tie order: observations sharing an
// instant sort by price, so the derived changes are the same whichever
// order the provider happened to emit them in.
func TestNormalizeTiedTimestamps(t *testing.T) {
	a := []Observation{
		{Timestamp: ts(0), Price: 100},
		{Timestamp: ts(1), Price: 50},
		{Timestamp: ts(1), Price: 200},
		{Timestamp: ts(2), Price: 100},
	}
	b := []Observation{
		{Timestamp: ts(1), Price: 200},
		{Timestamp: ts(2), Price: 100},
		{Timestamp: ts(1), Price: 50},
		{Timestamp: ts(0), Price: 100},
	}

	got := Normalize(a)
	wantChanges := []float64{0, -50, 300, -50}
	if len(got) != len(wantChanges) {
		t.Fatalf("len(points) = %d, want %d: %+v", len(got), len(wantChanges), got)
	}
	for i, want := range wantChanges {
		if got[i].PercentChange != want {
			t.Errorf("points[%d].PercentChange = %v, want %v", i, got[i].PercentChange, want)
		}
	}

	if other := Normalize(b); !reflect.DeepEqual(other, got) {
		t.Errorf("reordered input changed output:\ngot  %+v\nwant %+v", other, got)
	}
}

func TestNormalizeSkipsZeroPredecessor(t *testing.T) {
	obs := []Observation{
		{Timestamp: ts(0), Price: 0},
		{Timestamp: ts(1), Price: 100},
		{Timestamp: ts(2), Price: 110},
	}

	points := Normalize(obs)

	// The point after the zero price is dropped instead of dividing by zero;
	// the walk continues from the zero-price point.
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1: %+v", len(points), points)
	}
	if points[0].Price != 0 {
		t.Errorf("points[0].Price = %v, want 0", points[0].Price)
	}
}

func TestNormalizeInputNotMutated(t *testing.T) {
	obs := []Observation{
		{Timestamp: ts(1), Price: 100},
		{Timestamp: ts(0), Price: 90},
	}
	Normalize(obs)
	if !obs[0].Timestamp.Equal(ts(1)) {
		t.Error("Normalize must not reorder its input slice")
	}
}

func TestFromQuotes(t *testing.T) {
	quotes := []api.RawQuote{
		{Timestamp: "2024-03-01T03:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(100)}}},
		{Timestamp: "2024-03-01T01:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(90)}}},
		{Timestamp: "2024-03-01T02:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: nil}}},
		{Timestamp: "not-a-time", Quote: map[string]api.QuoteValue{"USD": {Price: f(1)}}},
		{Timestamp: "2024-03-01T04:00:00Z", Quote: map[string]api.QuoteValue{"EUR": {Price: f(80)}}},
	}

	obs := FromQuotes(quotes, "USD")
	if len(obs) != 2 {
		t.Fatalf("len(obs) = %d, want 2 surviving entries: %+v", len(obs), obs)
	}
}

// TestQuotesEndToEnd is the full path: sparse, unordered raw quotes in,
// ordered points with derived changes out.
func TestQuotesEndToEnd(t *testing.T) {
	quotes := []api.RawQuote{
		{Timestamp: "2024-03-01T03:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(100)}}},
		{Timestamp: "2024-03-01T01:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: f(90)}}},
		{Timestamp: "2024-03-01T02:00:00Z", Quote: map[string]api.QuoteValue{"USD": {Price: nil}}},
	}

	points := Normalize(FromQuotes(quotes, "USD"))
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}

	if points[0].Price != 90 || points[0].PercentChange != 0 {
		t.Errorf("points[0] = %+v, want price 90 with change 0", points[0])
	}
	if points[1].Price != 100 || points[1].PercentChange != 11.11 {
		t.Errorf("points[1] = %+v, want price 100 with change 11.11", points[1])
	}
}

func TestFromCategoryPoints(t *testing.T) {
	raw := map[string]api.CategoryPoint{
		"2024-03-02T00:00:00Z": {MarketCap: f(1100)},
		"2024-03-01T00:00:00Z": {MarketCap: f(1000)},
		"2024-03-03T00:00:00Z": {MarketCap: nil},
		"garbage":              {MarketCap: f(5)},
	}

	points := Normalize(FromCategoryPoints(raw))
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Price != 1000 {
		t.Errorf("points[0].Price = %v, want 1000", points[0].Price)
	}
	if points[1].PercentChange != 10.0 {
		t.Errorf("points[1].PercentChange = %v, want 10.0", points[1].PercentChange)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{11.111111, 11.11},
		{11.116, 11.12},
		{-5.006, -5.01},
		{2.5, 2.5},
		{0, 0},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

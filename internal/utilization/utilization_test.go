package utilization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epi-triangulate/internal/table"
)

func TestCategorize(t *testing.T) {
	lookup := DefaultLookup()

	tests := []struct {
		antigen string
		rate    float64
		want    Category
	}{
		{"BCG", 120, Unacceptable},
		{"BCG", 100, Acceptable},
		{"BCG", 50, Acceptable},
		{"BCG", 49.99, LowUtilization},
		{"Penta", 94, LowUtilization},
		{"Penta", 95, Acceptable},
		{"Measles", 65, Acceptable},
		{"OPV", 79, LowUtilization},
		{"OPV", 80, Acceptable},
		{"OPV", 100.01, Unacceptable},
		{"bcg", 60, LowUtilization},
	}
	for _, tt := range tests {
		got := Categorize(tt.rate, lookup.For(tt.antigen))
		assert.Equal(t, tt.want, got, "%s at %.2f%%", tt.antigen, tt.rate)
	}
}

func TestBoundsLabel(t *testing.T) {
	b := DefaultLookup().For("Measles")
	assert.Equal(t, "Unacceptable (>100%)", b.Label(Unacceptable))
	assert.Equal(t, "Acceptable (65-100%)", b.Label(Acceptable))
	assert.Equal(t, "Low Utilization (<65%)", b.Label(LowUtilization))
}

func TestLookupValidate(t *testing.T) {
	require.NoError(t, DefaultLookup().Validate())

	bad := DefaultLookup()
	bad.Antigens["Rota"] = Bounds{Unacceptable: 0.5, Acceptable: 0.9}
	assert.Error(t, bad.Validate())
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 10))
	assert.Equal(t, 0.0, Rate(-5, 10))
	assert.Equal(t, 33.33, Rate(3, 1))
	assert.Equal(t, 150.0, Rate(2, 3))
}

func mergedTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromValues("merged",
		[]string{"Period", "Region", "Zone", "Woreda", "BCG Distributed", "Penta Distributed", "BCG Administered", "Penta Administered", "Notes"},
		[][]interface{}{
			{"2024-01", "Oromia", "East Shewa", "Adama", 100, 50, 80, 55, "x"},
			{"2024-01", "Oromia", "East Shewa", "Bishoftu", 0, 20, 5, 10, "y"},
			{"2024-02", "Amhara", "North Gondar", "Dabat", "200", "n/a", 150, 0, ""},
		})
	require.NoError(t, err)
	return tbl
}

func TestReshape(t *testing.T) {
	records := Reshape(mergedTable(t), DefaultLookup())
	require.Len(t, records, 6)

	assert.Equal(t, Record{
		Period: "2024-01", Region: "Oromia", Zone: "East Shewa", Woreda: "Adama",
		Antigen: "BCG", Distributed: 100, Administered: 80, Rate: 80, Category: Acceptable,
	}, records[0])

	penta := records[1]
	assert.Equal(t, "Penta", penta.Antigen)
	assert.Equal(t, 110.0, penta.Rate)
	assert.Equal(t, Unacceptable, penta.Category)

	// nothing distributed
	assert.Equal(t, 0.0, records[2].Rate)
	assert.Equal(t, LowUtilization, records[2].Category)

	assert.Equal(t, 0.0, records[5].Distributed)
	assert.Equal(t, "Dabat", records[5].Woreda)
}

func TestReshapeSingleSidedAntigen(t *testing.T) {
	tbl, err := table.FromValues("m", []string{"Period", "Woreda", "Rota Distributed"},
		[][]interface{}{{"Q1", "Adama", 10}})
	require.NoError(t, err)

	records := Reshape(tbl, DefaultLookup())
	require.Len(t, records, 1)
	assert.Equal(t, "Rota", records[0].Antigen)
	assert.Equal(t, 0.0, records[0].Administered)
	assert.Equal(t, "", records[0].Region)
}

func TestSummarize(t *testing.T) {
	records := Reshape(mergedTable(t), DefaultLookup())

	all := Summarize(records, Filter{})
	assert.Equal(t, 6, all.Records)
	assert.Equal(t, 370.0, all.TotalDistributed)
	assert.Equal(t, 300.0, all.TotalAdministered)
	assert.Equal(t, 81.08, all.OverallRate)
	require.Len(t, all.Categories, 3)
	assert.Equal(t, Unacceptable, all.Categories[0].Category)

	total := 0
	for _, c := range all.Categories {
		total += c.Count
	}
	assert.Equal(t, 6, total)

	jan := Summarize(records, Filter{Period: "2024-01", Region: "All", Antigen: "BCG"})
	assert.Equal(t, 2, jan.Records)
	assert.Equal(t, 100.0, jan.TotalDistributed)
	assert.Equal(t, 85.0, jan.TotalAdministered)
	assert.Equal(t, CategoryCount{Category: Acceptable, Count: 1, Percentage: 50}, jan.Categories[1])

	empty := Summarize(records, Filter{Region: "Afar"})
	assert.Equal(t, 0, empty.Records)
	assert.Equal(t, 0.0, empty.OverallRate)
	assert.Equal(t, 0.0, empty.Categories[2].Percentage)
}

func TestAntigenRates(t *testing.T) {
	records := Reshape(mergedTable(t), DefaultLookup())

	rates := AntigenRates(records, Filter{Region: "Oromia"})
	require.Len(t, rates, 2)
	assert.Equal(t, AntigenRate{Antigen: "BCG", Distributed: 100, Administered: 85, Rate: 85}, rates[0])
	assert.Equal(t, AntigenRate{Antigen: "Penta", Distributed: 70, Administered: 65, Rate: 92.86}, rates[1])
}

func TestPeriodsAndRecordsTable(t *testing.T) {
	records := Reshape(mergedTable(t), DefaultLookup())
	assert.Equal(t, []string{"2024-02", "2024-01"}, Periods(records))

	tbl := RecordsTable(records)
	assert.Equal(t, RecordColumns, tbl.Columns)
	require.Equal(t, 6, tbl.Len())
	assert.Equal(t, "110", tbl.Get(1, "Utilization Rate").Value)
	assert.Equal(t, "Unacceptable", tbl.Get(1, "Utilization Category").Value)
}

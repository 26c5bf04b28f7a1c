package normalize

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/sanket/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return n
}

func row(index int, fields map[string]string) core.RawRow {
	return core.RawRow{Index: index, Fields: fields}
}

func TestNormalize_BulletinRow(t *testing.T) {
	n := newTestNormalizer(t)

	record, err := n.Normalize("v1", row(7, map[string]string{
		core.FieldDate:        "16/05/15",
		core.FieldMine:        "Kusunda Colliery",
		core.FieldState:       "Jharkand",
		core.FieldDistrict:    "dhanabad",
		core.FieldKilled:      "Shri Ramesh Kumar (Driller), aged 35 years, Sohan Lal and Md. Iqbal",
		core.FieldDescription: "While drilling, a mass of roof fell on them.",
		core.FieldPrecaution:  "Had the roof been supported the accident could have been averted.",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Jharkhand", record.State)
	assert.Equal(t, "Dhanbad", record.District)
	assert.Equal(t, 2015, record.Year)
	assert.Equal(t, "2015-05-16", record.Date)
	assert.Equal(t, 3, record.Fatalities)
	assert.Equal(t, CauseFallOfRoof, record.Cause)
	assert.Equal(t, MineTypeCoal, record.MineType)
	assert.Equal(t, core.Provenance{Version: "v1", FirstRow: 7, LastRow: 7}, record.Provenance)
	assert.Equal(t, core.IDFromContent("v1:7"), record.ID)
}

func TestNormalize_ExplicitColumns(t *testing.T) {
	n := newTestNormalizer(t)

	record, err := n.Normalize("v1", row(0, map[string]string{
		core.FieldYear:     "2021",
		core.FieldState:    "Orissa",
		core.FieldDistrict: "keonjhar town",
		core.FieldMineType: "Iron ore",
		core.FieldCause:    "Dumper accident",
		core.FieldKilled:   "Two",
		core.FieldInjured:  "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Odisha", record.State)
	assert.Equal(t, "Keonjhar Town", record.District, "unknown districts are title-cased")
	assert.Equal(t, 2021, record.Year)
	assert.Equal(t, MineTypeMetalliferous, record.MineType)
	assert.Equal(t, CauseTransportation, record.Cause)
	assert.Equal(t, 2, record.Fatalities)
	assert.Equal(t, 1, record.Injuries)
}

func TestNormalize_SkipReasons(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name   string
		fields map[string]string
		reason core.SkipReason
	}{
		{"empty row", map[string]string{core.FieldState: " "}, core.SkipEmptyRow},
		{"missing state", map[string]string{core.FieldYear: "2020", core.FieldKilled: "1"}, core.SkipMissingState},
		{"unknown state", map[string]string{core.FieldState: "Atlantis", core.FieldYear: "2020", core.FieldKilled: "1"}, core.SkipUnknownState},
		{"missing year", map[string]string{core.FieldState: "Goa", core.FieldKilled: "1"}, core.SkipMissingYear},
		{"unparseable date", map[string]string{core.FieldState: "Goa", core.FieldDate: "sometime", core.FieldKilled: "1"}, core.SkipBadYear},
		{"future year", map[string]string{core.FieldState: "Goa", core.FieldYear: "2031", core.FieldKilled: "1"}, core.SkipBadYear},
		{"ancient year", map[string]string{core.FieldState: "Goa", core.FieldYear: "1850", core.FieldKilled: "1"}, core.SkipBadYear},
		{"negative fatalities", map[string]string{core.FieldState: "Goa", core.FieldYear: "2020", core.FieldKilled: "-3"}, core.SkipBadFatalities},
		{"unknown fatalities", map[string]string{core.FieldState: "Goa", core.FieldYear: "2020", core.FieldKilled: "unknown"}, core.SkipBadFatalities},
		{"nothing describing the accident", map[string]string{core.FieldState: "Goa", core.FieldYear: "2020", core.FieldMine: "X"}, core.SkipEmptyDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize("v1", row(3, tt.fields))
			require.Error(t, err)
			var skipErr *SkipError
			require.True(t, errors.As(err, &skipErr))
			assert.Equal(t, tt.reason, skipErr.Reason)
			assert.Equal(t, 3, skipErr.Row)
		})
	}
}

func TestNormalizeAll_SkipRate(t *testing.T) {
	n := newTestNormalizer(t)

	rows := make([]core.RawRow, 100)
	for i := range rows {
		fields := map[string]string{
			core.FieldState:       "Chhattisgarh",
			core.FieldYear:        "2019",
			core.FieldKilled:      "1",
			core.FieldDescription: fmt.Sprintf("accident %d", i),
		}
		switch {
		case i < 5:
			fields[core.FieldState] = "Narnia"
		case i < 10:
			delete(fields, core.FieldYear)
		case i < 15:
			fields[core.FieldKilled] = "n/a"
		}
		rows[i] = row(i, fields)
	}

	records, stats := n.NormalizeAll("v1", rows)
	assert.Len(t, records, 85)
	assert.Equal(t, 100, stats.Total)
	assert.Equal(t, 15, stats.Skipped)
	assert.InDelta(t, 0.15, stats.Rate(), 1e-9)
	assert.Equal(t, 5, stats.Reasons[core.SkipUnknownState])
	assert.Equal(t, 5, stats.Reasons[core.SkipMissingYear])
	assert.Equal(t, 5, stats.Reasons[core.SkipBadFatalities])
	assert.Equal(t, 15, records[0].Provenance.FirstRow)
}

func TestNormalize_Deterministic(t *testing.T) {
	n := newTestNormalizer(t)
	r := row(1, map[string]string{core.FieldState: "M.P.", core.FieldDate: "2020-02-03", core.FieldCause: "Explosion"})

	a, err := n.Normalize("v9", r)
	require.NoError(t, err)
	b, err := n.Normalize("v9", r)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "Madhya Pradesh", a.State)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"", 0, true},
		{"Nil", 0, true},
		{"-", 0, true},
		{"3", 3, true},
		{"2 (two)", 2, true},
		{"Seven", 7, true},
		{"one person", 1, true},
		{"A. Kumar", 1, true},
		{"A. Kumar, B. Singh & C. Das", 3, true},
		{"-1", 0, false},
		{"unknown", 0, false},
		{"??", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseCount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestYearFromDate(t *testing.T) {
	tests := map[string]int{
		"03-01-2024":       2024,
		"03/01/2024":       2024,
		"16/05/15":         2015,
		"16/05/67":         1967,
		"2019/11/30":       2019,
		"2019-11-30":       2019,
		"30.11.2019":       2019,
		"7 March 2018":     2018,
		"on or about 2012": 2012,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, ok := yearFromDate(in)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyCause(t *testing.T) {
	tests := []struct {
		explicit, description, want string
	}{
		{"Fall of Roof", "", CauseFallOfRoof},
		{"Machinery", "", CauseMachinery},
		{"short circuit", "", CauseElectrical},
		{"", "The deceased was caught in the conveyor", CauseMachinery},
		{"", "Methane ignited in the district", CauseExplosion},
		{"", "A fire broke out in the seam", CauseFire},
		{"", "struck by a loaded truck", CauseTransportation},
		{"", "nothing notable", CauseOther},
	}
	for _, tt := range tests {
		t.Run(tt.explicit+tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCause(tt.explicit, tt.description))
		})
	}
}

func TestClassifyMineType(t *testing.T) {
	assert.Equal(t, MineTypeCoal, ClassifyMineType("Coal", "", ""))
	assert.Equal(t, MineTypeOil, ClassifyMineType("Oil & Gas", "", ""))
	assert.Equal(t, MineTypeMetalliferous, ClassifyMineType("Limestone", "", ""))
	assert.Equal(t, MineTypeCoal, ClassifyMineType("", "Jhanjra Colliery", ""))
	assert.Equal(t, MineTypeOil, ClassifyMineType("", "ONGC Ankleshwar", ""))
	assert.Equal(t, MineTypeMetalliferous, ClassifyMineType("", "Barsua Iron Mine", "soil slipped"))
}

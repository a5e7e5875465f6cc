package names

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/serum-errors/go-serum"

	"github.com/dataforge/dataforge/dfapi"
)

func TestUnderscore(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Urban population", "urban_population"},
		{"Urban population (% of total population)",
			"urban_population__pct_of_total_population"},
		{"Women's share of population ages 15+ living with HIV (%)",
			"womens_share_of_population_ages_15plus_living_with_hiv__pct"},
		{"Water productivity, total (constant 2010 US$ GDP per cubic meter of total freshwater withdrawal)",
			"water_productivity__total__constant_2010_usd_gdp_per_cubic_meter_of_total_freshwater_withdrawal"},
		{"Agricultural machinery, tractors per 100 sq. km of arable land",
			"agricultural_machinery__tractors_per_100_sq__km_of_arable_land"},
		{"GDP per capita, PPP (current international $)",
			"gdp_per_capita__ppp__current_international_dollar"},
		{"Automated teller machines (ATMs) (per 100,000 adults)",
			"automated_teller_machines__atms__per_100_000_adults"},
	}
	for _, c := range cases {
		qt.Check(t, Underscore(c.in), qt.Equals, c.want, qt.Commentf("input: %q", c.in))
	}
}

func TestUnderscoreIdempotent(t *testing.T) {
	for _, name := range []string{
		"urban_population",
		"gdp_per_capita__ppp__current_international_dollar",
	} {
		qt.Check(t, Underscore(name), qt.Equals, name)
	}
}

func TestValidateUnderscore(t *testing.T) {
	qt.Check(t, ValidateUnderscore("urban_population", "column name"), qt.IsNil)
	qt.Check(t, ValidateUnderscore("_private", "column name"), qt.IsNil)

	for _, bad := range []string{"", "Urban population", "gdp%", "2020_population"} {
		err := ValidateUnderscore(bad, "column name")
		qt.Check(t, serum.Code(err), qt.Equals, dfapi.ECodeName, qt.Commentf("name: %q", bad))
	}
}

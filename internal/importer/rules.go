package importer

// Rules describes, declaratively, how to lift a region out of one source's
// feature properties. Sources differ wildly in property naming (ADMIN vs
// name_en, ISO_A3 vs postal), so each source carries its own ordered probe
// lists; adding a source means adding a table entry, not another branch.
type Rules struct {
	// NameKeys are probed in order; the first non-empty string wins.
	NameKeys []string

	// CodeKeys then FallbackCodeKeys are probed in order. Placeholder values
	// ("-99", numeric -99) count as absent.
	CodeKeys         []string
	FallbackCodeKeys []string

	// StaticCodes maps resolved names to canonical codes (US state postal
	// codes). Consulted after the property probes, before synthesis.
	StaticCodes map[string]string

	// CodePrefix prefixes synthesized codes ("US" -> "US-CA" style). Empty
	// means a bare synthesized code.
	CodePrefix string

	// CountryFilter, when set, drops features belonging to other countries
	// (used when a global dataset must be narrowed to one country).
	CountryFilter *CountryFilter

	RegionType string

	// CustomData, when set, builds the opaque metadata blob stored alongside
	// the region.
	CustomData func(props map[string]interface{}) map[string]interface{}
}

// CountryFilter keeps only features whose country property matches one of the
// accepted literals (by equality or substring, case-sensitive).
type CountryFilter struct {
	Keys   []string
	Accept []string
}

// Source is one remote or local GeoJSON document plus the rules to read it.
type Source struct {
	Name  string
	URL   string
	File  string // local path; takes precedence over URL when set
	Rules Rules
}

// Job is one import run: an ordered list of fallback sources, tried until one
// yields at least a single imported feature.
type Job struct {
	Sources []Source

	// ParentCode, when set, is resolved to a parent region id before the run;
	// a missing parent is logged and the import proceeds unparented.
	ParentCode string

	// EnsureParentName, when set together with ParentCode, creates the parent
	// region first if it does not exist yet.
	EnsureParentName string

	// ReplaceType, when set, deletes all regions of that type before
	// importing (full refresh of a subdivision level).
	ReplaceType string
}

// usStateCodes maps US state and territory names to ISO 3166-2 style codes.
var usStateCodes = map[string]string{
	"Alabama": "US-AL", "Alaska": "US-AK", "Arizona": "US-AZ",
	"Arkansas": "US-AR", "California": "US-CA", "Colorado": "US-CO",
	"Connecticut": "US-CT", "Delaware": "US-DE", "Florida": "US-FL",
	"Georgia": "US-GA", "Hawaii": "US-HI", "Idaho": "US-ID",
	"Illinois": "US-IL", "Indiana": "US-IN", "Iowa": "US-IA",
	"Kansas": "US-KS", "Kentucky": "US-KY", "Louisiana": "US-LA",
	"Maine": "US-ME", "Maryland": "US-MD", "Massachusetts": "US-MA",
	"Michigan": "US-MI", "Minnesota": "US-MN", "Mississippi": "US-MS",
	"Missouri": "US-MO", "Montana": "US-MT", "Nebraska": "US-NE",
	"Nevada": "US-NV", "New Hampshire": "US-NH", "New Jersey": "US-NJ",
	"New Mexico": "US-NM", "New York": "US-NY", "North Carolina": "US-NC",
	"North Dakota": "US-ND", "Ohio": "US-OH", "Oklahoma": "US-OK",
	"Oregon": "US-OR", "Pennsylvania": "US-PA", "Rhode Island": "US-RI",
	"South Carolina": "US-SC", "South Dakota": "US-SD", "Tennessee": "US-TN",
	"Texas": "US-TX", "Utah": "US-UT", "Vermont": "US-VT",
	"Virginia": "US-VA", "Washington": "US-WA", "West Virginia": "US-WV",
	"Wisconsin": "US-WI", "Wyoming": "US-WY", "Puerto Rico": "US-PR",
	"District of Columbia": "US-DC",
}

// WorldCountriesJob imports every country boundary from the same dataset the
// globe front end used to load externally.
func WorldCountriesJob() Job {
	countryRules := Rules{
		NameKeys:         []string{"ADMIN", "admin", "name", "NAME"},
		CodeKeys:         []string{"ISO_A3", "iso_a3", "ADM0_A3", "SOV_A3"},
		FallbackCodeKeys: []string{"WB_A3", "BRK_A3", "ADM0_A3"},
		RegionType:       "country",
		CustomData: func(props map[string]interface{}) map[string]interface{} {
			return map[string]interface{}{
				"iso_a2":    props["ISO_A2"],
				"continent": props["CONTINENT"],
				"region_un": props["REGION_UN"],
				"subregion": props["SUBREGION"],
				"color":     "#66ffcc",
			}
		},
	}

	return Job{
		Sources: []Source{
			{
				Name:  "datasets/geo-countries",
				URL:   "https://raw.githubusercontent.com/datasets/geo-countries/master/data/countries.geojson",
				Rules: countryRules,
			},
		},
	}
}

// USStatesJob imports US state boundaries, trying sources in order of detail.
// The Natural Earth source is a global dataset and is filtered down to US
// features.
func USStatesJob() Job {
	stateRules := Rules{
		NameKeys:    []string{"name", "NAME", "name_en", "NAME_1", "gn_name", "id"},
		StaticCodes: usStateCodes,
		CodePrefix:  "US",
		RegionType:  "state",
	}

	naturalEarthRules := stateRules
	naturalEarthRules.CountryFilter = &CountryFilter{
		Keys:   []string{"admin", "country"},
		Accept: []string{"United States", "USA"},
	}

	return Job{
		ParentCode:       "USA",
		EnsureParentName: "United States",
		ReplaceType:      "state",
		Sources: []Source{
			{
				Name:  "PublicaMundi",
				URL:   "https://raw.githubusercontent.com/PublicaMundi/MappingAPI/master/data/geojson/us-states.json",
				Rules: stateRules,
			},
			{
				Name:  "folium example data",
				URL:   "https://raw.githubusercontent.com/python-visualization/folium/master/examples/data/us-states.json",
				Rules: stateRules,
			},
			{
				Name:  "Natural Earth 50m",
				URL:   "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_50m_admin_1_states_provinces.geojson",
				Rules: naturalEarthRules,
			},
		},
	}
}

// SubdivisionJob builds a generic subdivision import for an arbitrary GeoJSON
// source, nested under the region identified by parentCode. Synthesized codes
// take the parent code as prefix (FR -> FR-NO and so on).
func SubdivisionJob(url, file, regionType, parentCode string) Job {
	return Job{
		ParentCode: parentCode,
		Sources: []Source{
			{
				Name: "custom source",
				URL:  url,
				File: file,
				Rules: Rules{
					NameKeys:   []string{"name", "NAME", "NAME_1", "admin", "ADMIN"},
					CodeKeys:   []string{"code", "iso_3166_2", "postal", "POSTAL", "iso_a2"},
					CodePrefix: parentCode,
					RegionType: regionType,
				},
			},
		},
	}
}

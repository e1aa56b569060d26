package query

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps an abbreviation to its expansion.
type Table map[string]string

// DefaultTable returns the built-in Polish abbreviation table.
func DefaultTable() Table {
	return Table{
		// general
		"np.":   "na przykład",
		"tj.":   "to jest",
		"tzn.":  "to znaczy",
		"itp.":  "i tak podobnie",
		"itd.":  "i tak dalej",
		"m.in.": "między innymi",
		"ww.":   "wyżej wymieniony",
		"wg":    "według",
		"dot.":  "dotyczący",
		"zob.":  "zobacz",
		"por.":  "porównaj",
		"tzw.":  "tak zwany",
		"ok.":   "około",

		// money and quantities
		"zł":    "złotych",
		"PLN":   "złotych polskich",
		"tys.":  "tysięcy",
		"mln":   "milionów",
		"mld":   "miliardów",
		"max":   "maksymalnie",
		"min":   "minimalnie",
		"śr.":   "średnio",
		"temp.": "temperatura",
		"proc.": "procent",
		"%":     "procent",

		// titles
		"dr":    "doktor",
		"prof.": "profesor",
		"mgr":   "magister",
		"inż.":  "inżynier",

		// addresses
		"ul.": "ulica",
		"al.": "aleja",
		"pl.": "plac",

		// time
		"godz.": "godzina",
		"min.":  "minut",
		"sek.":  "sekund",
		"r.":    "roku",

		// legal references
		"nr":   "numer",
		"art.": "artykuł",
		"ust.": "ustęp",
		"pkt":  "punkt",
		"lit.": "litera",
		"par.": "paragraf",
		"str.": "strona",
	}
}

type tableFile struct {
	Abbreviations map[string]string `yaml:"abbreviations"`
}

// LoadTable reads an abbreviation table from a YAML file of the form
//
//	abbreviations:
//	  "np.": "na przykład"
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read abbreviation table: %w", err)
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse abbreviation table %s: %w", path, err)
	}
	if len(f.Abbreviations) == 0 {
		return nil, fmt.Errorf("abbreviation table %s has no entries", path)
	}
	return Table(f.Abbreviations), nil
}

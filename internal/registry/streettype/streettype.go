// Package streettype expands the street-type abbreviations used in registry addresses
// ("RUE", "AV", "BD", ...) to their full French form.
package streettype

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// dictionary maps upper-cased, NFC-normalized abbreviations to their expansion.
// It is never written after package initialization.
var dictionary = map[string]string{
	"ALL":  "Allée",
	"AV":   "Avenue",
	"BD":   "Boulevard",
	"CH":   "Chemin",
	"CHEM": "Chemin",
	"IMP":  "Impasse",
	"PL":   "Place",
	"PT":   "Petite Route",
	"RLE":  "Ruelle",
	"RUE":  "Rue",
	"SQ":   "Square",
	"CRS":  "Cours",
	"ESP":  "Esplanade",
	"FBG":  "Faubourg",
	"GDE":  "Grande",
	"PAS":  "Passage",
	"PCE":  "Place",
	"QAI":  "Quai",
	"RPT":  "Rond-Point",
	"RT":   "Route",
	"SENT": "Sentier",
	"TSSE": "Terrasse",
	"VLA":  "Villa",
	"VOIE": "Voie",
	"CARF": "Carrefour",
	"CG":   "Chaussée",
	"CITÉ": "Cité",
	"CLOS": "Clos",
	"CNE":  "Corniche",
	"DOM":  "Domaine",
	"LOT":  "Lotissement",
	"MAIL": "Mail",
	"PARC": "Parc",
	"QU":   "Quartier",
}

// Expand returns the full street type for abbr, matching case-insensitively.
// Unknown abbreviations are returned unchanged.
func Expand(abbr string) string {
	if full, ok := dictionary[key(abbr)]; ok {
		return full
	}
	return abbr
}

func key(abbr string) string {
	// Casers keep state, so one per call.
	upper := cases.Upper(language.French).String(strings.TrimSpace(abbr))
	return norm.NFC.String(upper)
}

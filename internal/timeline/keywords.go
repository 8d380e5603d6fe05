package timeline

import "github.com/scrypster/chronolex/pkg/types"

// The tables in this file drive classification, importance scoring and view
// filtering. They are calibrated for French business criminal law. A YAML
// overlay in the config package can replace individual tables.

// importanceWeights adjusts the base importance of 5 when a keyword appears
// in the event context. Weights can be negative.
var importanceWeights = map[string]int{
	// critical acts
	"mise en examen":       4,
	"garde à vue":          3,
	"perquisition":         3,
	"détention provisoire": 4,
	"contrôle judiciaire":  3,
	"gel des avoirs":       3,
	"saisie pénale":        3,

	// serious offences
	"corruption":     3,
	"blanchiment":    3,
	"abus de biens":  3,
	"escroquerie":    2,
	"faux":           2,
	"recel":          2,
	"fraude fiscale": 3,

	// significant procedure
	"cjip":                   3,
	"convention judiciaire":  3,
	"information judiciaire": 2,
	"réquisitoire":           2,
	"ordonnance de renvoi":   2,
	"jugement":               3,
	"condamnation":           4,

	// authorities
	"pnf":                 2,
	"tracfin":             2,
	"brigade financière":  2,
	"juge d'instruction":  2,

	// downgrades
	"simple":   -1,
	"courrier": -1,
	"report":   -1,
	"mineur":   -2,
}

// internationalMarkers add +1 importance when present.
var internationalMarkers = []string{"international", "étranger", "offshore", "luxembourg", "suisse"}

// coerciveMarkers add +2 importance when present.
var coerciveMarkers = []string{"interdiction", "suspension", "révocation", "fermeture"}

// categoryKeywords maps each category to the keywords that vote for it.
// Classification picks the category with the highest vote count.
var categoryKeywords = map[types.Category][]string{
	types.CategoryInvestigation: {"perquisition", "garde à vue", "audition", "saisie", "procès-verbal", "opj", "enquête préliminaire", "flagrance"},
	types.CategoryInstruction:   {"juge d'instruction", "mise en examen", "témoin assisté", "ordonnance", "commission rogatoire", "expertise", "confrontation"},
	types.CategoryProcedure:     {"tribunal", "audience", "jugement", "appel", "cassation", "citation", "convocation", "notification"},
	types.CategoryFinancial:     {"détournement", "abus de biens", "blanchiment", "corruption", "fraude", "escroquerie", "faux", "recel"},
	types.CategoryFiscal:        {"fraude fiscale", "impôt", "redressement", "contrôle fiscal", "dgfip", "dissimulation"},
	types.CategoryLabor:         {"travail dissimulé", "urssaf", "inspection du travail", "cotisations", "accident du travail"},
	types.CategoryCompliance:    {"conformité", "alerte", "lanceur d'alerte", "audit", "contrôle interne", "lcb-ft", "tracfin"},
	types.CategoryCoercive:      {"contrôle judiciaire", "détention provisoire", "scellés", "gel des avoirs", "interdiction", "caution"},
}

// proceduralCategories are excluded by the facts view.
var proceduralCategories = map[types.Category]bool{
	types.CategoryInvestigation: true,
	types.CategoryInstruction:   true,
	types.CategoryProcedure:     true,
	types.CategoryCoercive:      true,
}

// auditionKeywords select hearing-related events for the auditions view.
var auditionKeywords = []string{"audition", "garde à vue", "confrontation", "interrogatoire"}

// relatedFacts maps a target fact to connected infraction keywords, used by
// the specific-fact view when related inclusion is on. Lookup is by
// substring of the requested fact.
var relatedFacts = map[string][]string{
	"abus de biens":  {"blanchiment", "recel", "complicité", "faux", "dissimulation"},
	"corruption":     {"trafic d'influence", "favoritisme", "prise illégale", "blanchiment"},
	"blanchiment":    {"recel", "infraction sous-jacente", "dissimulation", "conversion"},
	"escroquerie":    {"faux", "usage de faux", "abus de confiance", "manœuvres"},
	"fraude fiscale": {"blanchiment de fraude", "solidarité fiscale", "dissimulation"},
}

// actSynonyms maps a procedural act type to its textual variants, used by
// the act-type view. Lookup is by substring of the requested act.
var actSynonyms = map[string][]string{
	"perquisitions":       {"perquisition", "perquisitionné", "fouille", "visite domiciliaire"},
	"saisies":             {"saisie", "saisi", "saisir", "mise sous scellés", "scellés"},
	"garde à vue":         {"garde à vue", "gav", "gardé à vue", "placement en garde"},
	"auditions":           {"audition", "auditionné", "entendu", "interrogé", "déclarations"},
	"expertises":          {"expertise", "expert", "rapport d'expertise", "mission d'expertise"},
	"mise en examen":      {"mise en examen", "mis en examen", "mec"},
	"contrôle judiciaire": {"contrôle judiciaire", "obligations", "interdictions"},
}

// infractionKeywords maps infraction families to their markers for legal
// metadata enrichment.
var infractionKeywords = map[string][]string{
	"abus_biens_sociaux": {"abus de biens", "biens sociaux"},
	"corruption":         {"corruption", "corrompu", "pot-de-vin", "trafic d'influence"},
	"blanchiment":        {"blanchiment", "capitaux", "provenance illicite"},
	"escroquerie":        {"escroquerie", "tromperie", "manœuvres frauduleuses"},
	"faux":               {"faux", "usage de faux", "falsification"},
	"detournement":       {"détournement", "malversation", "soustraction"},
	"delit_initie":       {"délit d'initié", "information privilégiée"},
	"fraude_fiscale":     {"fraude fiscale", "évasion fiscale", "dissimulation"},
	"travail_dissimule":  {"travail dissimulé", "travail au noir", "non déclaré"},
	"banqueroute":        {"banqueroute", "organisation d'insolvabilité"},
}

// proceduralPhases are checked in order; the first matching phase wins.
var proceduralPhases = []struct {
	Phase    string
	Keywords []string
}{
	{"enquête_préliminaire", []string{"enquête préliminaire", "flagrance", "plainte"}},
	{"instruction", []string{"instruction", "juge d'instruction", "commission rogatoire"}},
	{"jugement", []string{"jugement", "tribunal", "audience", "plaidoirie"}},
	{"appel", []string{"appel", "cour d'appel"}},
	{"cassation", []string{"cassation", "cour de cassation"}},
}

// authorityKeywords identify judicial and administrative authorities
// mentioned in an event.
var authorityKeywords = map[string][]string{
	"parquet":     {"procureur", "parquet", "ministère public"},
	"instruction": {"juge d'instruction", "cabinet d'instruction"},
	"police":      {"police", "opj", "brigade financière"},
	"gendarmerie": {"gendarmerie", "section de recherches"},
	"fisc":        {"dgfip", "administration fiscale", "fisc", "impôts"},
	"douanes":     {"douanes", "dgddi"},
	"tracfin":     {"tracfin", "cellule de renseignement"},
	"amf":         {"amf", "autorité des marchés"},
	"acpr":        {"acpr", "autorité de contrôle"},
	"tribunal":    {"tribunal", "tribunal correctionnel"},
}

// KeywordOverrides replaces individual tables from configuration. Nil
// fields keep the built-in table.
type KeywordOverrides struct {
	ImportanceWeights map[string]int      `yaml:"importance_weights"`
	RelatedFacts      map[string][]string `yaml:"related_facts"`
	ActSynonyms       map[string][]string `yaml:"act_synonyms"`
}

// ApplyOverrides installs configured tables. Called once at startup,
// before any extraction runs.
func ApplyOverrides(o KeywordOverrides) {
	if o.ImportanceWeights != nil {
		importanceWeights = o.ImportanceWeights
	}
	if o.RelatedFacts != nil {
		relatedFacts = o.RelatedFacts
	}
	if o.ActSynonyms != nil {
		actSynonyms = o.ActSynonyms
	}
}

// relatedFactKeywords returns the connected-infraction keywords for a
// target fact, or nil when the fact has no known relations.
func relatedFactKeywords(fact string) []string {
	for key, values := range relatedFacts {
		if containsFold(fact, key) {
			return values
		}
	}
	return nil
}

// actTypeSynonyms returns the textual variants of an act type. Unknown
// acts fall back to the act itself plus naive singular/plural forms.
func actTypeSynonyms(act string) []string {
	for key, values := range actSynonyms {
		if containsFold(act, key) {
			return values
		}
	}
	lower := lowerTrim(act)
	return []string{lower, trimPlural(lower), lower + "s"}
}

package gdelt

import "strings"

// The article index filters by language and country NAME, not code. Theme
// configs carry ISO codes; these tables translate them. Unknown codes fall
// through as their lowercased form so a typo degrades to a no-match filter
// instead of a query error.

var languageNames = map[string]string{
	"ar": "arabic",
	"cs": "czech",
	"da": "danish",
	"de": "german",
	"el": "greek",
	"en": "english",
	"es": "spanish",
	"fi": "finnish",
	"fr": "french",
	"he": "hebrew",
	"hi": "hindi",
	"hu": "hungarian",
	"id": "indonesian",
	"it": "italian",
	"ja": "japanese",
	"ko": "korean",
	"nl": "dutch",
	"no": "norwegian",
	"pl": "polish",
	"pt": "portuguese",
	"ro": "romanian",
	"ru": "russian",
	"sv": "swedish",
	"th": "thai",
	"tr": "turkish",
	"uk": "ukrainian",
	"vi": "vietnamese",
	"zh": "chinese",
}

var countryNames = map[string]string{
	"AR": "argentina",
	"AU": "australia",
	"BR": "brazil",
	"CA": "canada",
	"CH": "switzerland",
	"CL": "chile",
	"CN": "china",
	"CO": "colombia",
	"DE": "germany",
	"ES": "spain",
	"FR": "france",
	"GB": "unitedkingdom",
	"IE": "ireland",
	"IN": "india",
	"IT": "italy",
	"JP": "japan",
	"KR": "southkorea",
	"MX": "mexico",
	"NL": "netherlands",
	"NZ": "newzealand",
	"PT": "portugal",
	"RU": "russia",
	"SE": "sweden",
	"US": "unitedstates",
	"ZA": "southafrica",
}

// LanguageName maps an ISO 639-1 code to the index's language name.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return strings.ToLower(strings.TrimSpace(code))
}

// CountryName maps an ISO 3166-1 alpha-2 code to the index's country name.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return name
	}
	return strings.ToLower(strings.TrimSpace(code))
}

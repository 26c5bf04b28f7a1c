// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package normalize

import (
	"strings"
	"unicode"
)

// states maps each canonical state or union territory to its aliases.
var states = map[string][]string{
	"Andhra Pradesh":    {"AP", "A.P."},
	"Arunachal Pradesh": nil,
	"Assam":             nil,
	"Bihar":             nil,
	"Chhattisgarh":      {"Chattisgarh", "Chhatisgarh", "Chattisgadh", "C.G.", "CG"},
	"Goa":               nil,
	"Gujarat":           {"Gujrat"},
	"Haryana":           nil,
	"Himachal Pradesh":  {"H.P.", "HP"},
	"Jharkhand":         {"Jharkand", "Jharkhnad"},
	"Karnataka":         {"Karnatak"},
	"Kerala":            nil,
	"Madhya Pradesh":    {"M.P.", "MP"},
	"Maharashtra":       {"Maharastra", "Maharashtr"},
	"Manipur":           nil,
	"Meghalaya":         nil,
	"Mizoram":           nil,
	"Nagaland":          nil,
	"Odisha":            {"Orissa", "Odisa"},
	"Punjab":            nil,
	"Rajasthan":         {"Rajastan"},
	"Sikkim":            nil,
	"Tamil Nadu":        {"Tamilnadu", "T.N.", "TN"},
	"Telangana":         {"Telengana", "Telagana"},
	"Tripura":           nil,
	"Uttar Pradesh":     {"U.P.", "UP"},
	"Uttarakhand":       {"Uttaranchal"},
	"West Bengal":       {"W.B.", "WB", "Bengal"},

	// Union territories
	"Andaman and Nicobar":                      {"Andaman & Nicobar", "Andaman and Nicobar Islands"},
	"Chandigarh":                               nil,
	"Dadra and Nagar Haveli and Daman and Diu": {"Daman and Diu", "Dadra and Nagar Haveli"},
	"Delhi":                                    {"NCT of Delhi", "New Delhi"},
	"Jammu and Kashmir":                        {"J&K", "Jammu & Kashmir"},
	"Ladakh":                                   nil,
	"Lakshadweep":                              nil,
	"Puducherry":                               {"Pondicherry"},
}

// districts maps canonical state to canonical district to aliases, for
// the main mining districts. Districts not listed are kept title-cased.
var districts = map[string]map[string][]string{
	"Jharkhand": {
		"Dhanbad":            {"Dhanabad"},
		"Bokaro":             nil,
		"Ramgarh":            nil,
		"Hazaribagh":         {"Hazaribag"},
		"Giridih":            nil,
		"Chatra":             nil,
		"Latehar":            nil,
		"Godda":              nil,
		"Pakur":              nil,
		"Paschimi Singhbhum": {"West Singhbhum", "W. Singhbhum", "Chaibasa"},
		"Purbi Singhbhum":    {"East Singhbhum", "E. Singhbhum"},
	},
	"Odisha": {
		"Angul":      {"Anugul"},
		"Jharsuguda": nil,
		"Sundargarh": {"Sundergarh"},
		"Keonjhar":   {"Kendujhar"},
		"Jajpur":     nil,
		"Koraput":    nil,
		"Mayurbhanj": nil,
	},
	"Chhattisgarh": {
		"Korba":                  nil,
		"Raigarh":                nil,
		"Surguja":                {"Sarguja"},
		"Korea":                  {"Koriya"},
		"Dantewada":              {"Dakshin Bastar Dantewada"},
		"Balod":                  nil,
		"Surajpur":               nil,
		"Gaurela-Pendra-Marwahi": nil,
	},
	"Madhya Pradesh": {
		"Singrauli":  nil,
		"Shahdol":    nil,
		"Anuppur":    {"Anupur"},
		"Umaria":     nil,
		"Chhindwara": {"Chindwara"},
		"Betul":      nil,
		"Katni":      nil,
		"Balaghat":   nil,
	},
	"West Bengal": {
		"Paschim Bardhaman": {"Burdwan", "Bardhaman", "Paschim Burdwan", "Asansol"},
		"Purulia":           nil,
		"Birbhum":           nil,
		"Bankura":           nil,
	},
	"Telangana": {
		"Bhadradri Kothagudem":    {"Kothagudem", "Khammam"},
		"Mancherial":              nil,
		"Peddapalli":              {"Peddapally", "Ramagundam"},
		"Jayashankar Bhupalpally": {"Bhupalpally"},
		"Adilabad":                nil,
	},
	"Maharashtra": {
		"Chandrapur": {"Chanda"},
		"Nagpur":     nil,
		"Yavatmal":   {"Yeotmal"},
		"Wardha":     nil,
	},
	"Rajasthan": {
		"Udaipur":   nil,
		"Bhilwara":  nil,
		"Rajsamand": nil,
		"Jhunjhunu": {"Jhunjhunun"},
		"Barmer":    nil,
		"Bikaner":   nil,
	},
	"Karnataka": {
		"Ballari":     {"Bellary"},
		"Chitradurga": nil,
		"Tumakuru":    {"Tumkur"},
	},
	"Goa": {
		"North Goa": nil,
		"South Goa": nil,
	},
}

// gazetteer indexes canonical names by their normalized forms.
type gazetteer struct {
	states    map[string]string
	districts map[string]map[string]string
}

var defaultGazetteer = newGazetteer()

func newGazetteer() *gazetteer {
	g := &gazetteer{
		states:    make(map[string]string),
		districts: make(map[string]map[string]string),
	}
	for canonical, aliases := range states {
		g.states[placeKey(canonical)] = canonical
		for _, a := range aliases {
			g.states[placeKey(a)] = canonical
		}
	}
	for state, ds := range districts {
		index := make(map[string]string)
		for canonical, aliases := range ds {
			index[placeKey(canonical)] = canonical
			for _, a := range aliases {
				index[placeKey(a)] = canonical
			}
		}
		g.districts[state] = index
	}
	return g
}

// State returns the canonical state for name.
func (g *gazetteer) State(name string) (string, bool) {
	s, ok := g.states[placeKey(name)]
	return s, ok
}

// District returns the canonical district within state. Unknown districts
// are returned title-cased.
func (g *gazetteer) District(state, name string) string {
	key := placeKey(name)
	if key == "" {
		return ""
	}
	if d, ok := g.districts[state][key]; ok {
		return d
	}
	return titleCase(name)
}

// placeKey lowercases and strips punctuation so "M.P." and "m p" match.
// "&" is read as "and".
func placeKey(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "&", " and ")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

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

import "strings"

// Accident cause categories.
const (
	CauseFallOfRoof     = "Fall of Roof"
	CauseMachinery      = "Machinery Accident"
	CauseExplosion      = "Explosion"
	CauseElectrical     = "Electrical Accident"
	CauseFire           = "Fire Incident"
	CauseTransportation = "Transportation Accident"
	CauseOther          = "Other"
)

// Mine types.
const (
	MineTypeCoal          = "Coal"
	MineTypeMetalliferous = "Metalliferous"
	MineTypeOil           = "Oil"
)

var causeCategories = []string{
	CauseFallOfRoof,
	CauseMachinery,
	CauseExplosion,
	CauseElectrical,
	CauseFire,
	CauseTransportation,
}

type keywordRule struct {
	keywords []string
	category string
}

// explicitCauseRules classify a cause column value. First match wins.
var explicitCauseRules = []keywordRule{
	{[]string{"machin", "equip", "vehicle", "compressor", "diesel"}, CauseMachinery},
	{[]string{"roof", "fall", "collapse", "inrush", "slip"}, CauseFallOfRoof},
	{[]string{"elect", "short", "circuit"}, CauseElectrical},
	{[]string{"explosion", "blast", "gas", "methane", "leak"}, CauseExplosion},
	{[]string{"fire", "burn"}, CauseFire},
	{[]string{"transport", "vehic", "truck", "collision", "trolley"}, CauseTransportation},
}

// descriptionKeywords classify free text, most specific first.
var descriptionKeywords = []struct {
	keyword  string
	category string
}{
	{"fall of roof", CauseFallOfRoof},
	{"roof fall", CauseFallOfRoof},
	{"fall of side", CauseFallOfRoof},
	{"slip", CauseFallOfRoof},
	{"collapse", CauseFallOfRoof},
	{"machine", CauseMachinery},
	{"machinery", CauseMachinery},
	{"crush", CauseMachinery},
	{"caught in", CauseMachinery},
	{"entangled", CauseMachinery},
	{"explosion", CauseExplosion},
	{"blast", CauseExplosion},
	{"gas", CauseExplosion},
	{"electr", CauseElectrical},
	{"short circuit", CauseElectrical},
	{"fire", CauseFire},
	{"burn", CauseFire},
	{"transport", CauseTransportation},
	{"vehicle", CauseTransportation},
	{"truck", CauseTransportation},
	{"dumper", CauseTransportation},
	{"trolley", CauseTransportation},
	{"collision", CauseTransportation},
	{"diesel", CauseMachinery},
	{"compressor", CauseMachinery},
	{"fall from", CauseFallOfRoof},
	{"fall", CauseFallOfRoof},
	{"fell", CauseFallOfRoof},
	{"methane", CauseExplosion},
	{"oxygen deficiency", CauseExplosion},
	{"inrush", CauseFallOfRoof},
}

// ClassifyCause returns the cause category for an explicit cause value
// and, failing that, for the accident description.
func ClassifyCause(explicit, description string) string {
	if ex := strings.ToLower(strings.TrimSpace(explicit)); ex != "" {
		for _, c := range causeCategories {
			if strings.Contains(ex, strings.ToLower(c)) {
				return c
			}
		}
		for _, rule := range explicitCauseRules {
			if containsAny(ex, rule.keywords) {
				return rule.category
			}
		}
	}

	text := strings.ToLower(explicit + " " + description)
	for _, kw := range descriptionKeywords {
		if strings.Contains(text, kw.keyword) {
			return kw.category
		}
	}
	return CauseOther
}

// ClassifyMineType maps an explicit mine type, or infers one from the mine
// name and description.
func ClassifyMineType(explicit, mineName, description string) string {
	if ex := strings.ToLower(strings.TrimSpace(explicit)); ex != "" {
		switch {
		case strings.Contains(ex, "coal") || strings.Contains(ex, "lignite"):
			return MineTypeCoal
		case strings.Contains(ex, "oil") || strings.Contains(ex, "petrol"):
			return MineTypeOil
		default:
			return MineTypeMetalliferous
		}
	}

	name := strings.ToLower(mineName)
	text := name + " " + strings.ToLower(description)
	switch {
	case containsAny(text, []string{"colliery", "coal", "lignite", "incline", "ocp", " pit", "ugp"}):
		return MineTypeCoal
	case containsAny(text, []string{"ongc", "oil india", "oil field", "oilfield", "oil well", "crude", "drilling rig"}):
		return MineTypeOil
	default:
		return MineTypeMetalliferous
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

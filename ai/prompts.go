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


package ai

import (
	"fmt"
	"strings"
)

// NotAvailableAnswer is the phrase generators are instructed to use when the
// retrieved rows do not contain the answer.
const NotAvailableAnswer = "Not available in retrieved reports."

const answerSystemPrompt = `You are an expert analyst of Indian mine safety statistics.
Answer the user's question using ONLY the retrieved DGMS accident report rows given below.
Cite figures exactly as they appear in the rows and mention the state, district and year when relevant.
If the exact answer is not present in the rows, say: "%s"
Do not use outside knowledge and do not speculate.

Retrieved rows:
%s`

// BuildAnswerMessages returns the system and user messages for an answer request.
func BuildAnswerMessages(contextText, question string) (system, user string) {
	system = fmt.Sprintf(answerSystemPrompt, NotAvailableAnswer, strings.TrimSpace(contextText))
	user = strings.TrimSpace(question)
	return system, user
}

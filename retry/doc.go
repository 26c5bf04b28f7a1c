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


// Package retry provides exponential backoff for external calls.
//
// Every external call in the pipeline (listing fetch, document download,
// embedding, answer generation) runs under a Policy: a bounded number of
// attempts, a doubling delay, and an independent per-attempt timeout. A
// timed-out attempt is treated as a transient failure and retried, not as
// an abort of the surrounding operation.
//
//	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, Timeout: 30 * time.Second}
//	err := policy.Do(ctx, func(ctx context.Context) error {
//	    vectors, err = embedder.EmbedTexts(ctx, texts)
//	    return err
//	})
package retry

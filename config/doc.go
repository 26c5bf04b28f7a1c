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


// Package config loads service configuration from YAML and the environment.
//
// LoadConfig searches sanket.yaml, config.yaml, $HOME/.config/sanket/config.yaml
// and /etc/sanket/config.yaml when no path is given. Values from the file are
// overridden by environment variables, then unset fields receive defaults.
// Validate reports every problem at once as a list of field errors.
package config

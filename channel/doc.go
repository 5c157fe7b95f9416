// Copyright 2024 - See NOTICE file for copyright holders.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package channel contains the dispute core of nitro state channels.
// The Adjudicator keeps a hash of the storage of every channel and runs the
// forceMove, respond, refute, checkpoint and conclude operations on it. Turn
// taking and signature support are checked by the pure functions in turn.go
// and signatures.go, application rules by the Apps of an AppRegistry.
package channel

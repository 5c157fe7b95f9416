// Copyright 2025 PolyCrypt GmbH
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

package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"perun.network/go-perun/log"
	"polycry.pt/poly-go/sync"
)

// DefaultTopic is the topic Publisher publishes to if none is configured.
const DefaultTopic = "nitro.events"

// MetadataType is the message metadata key carrying the event topic.
const MetadataType = "type"

// Sink receives the events of committed operations.
type Sink interface {
	Emit(ctx context.Context, events ...Event) error
}

// Recorder is a Sink that keeps all events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t EventType) []Event {
	var res []Event
	for _, e := range r.Events() {
		if e.Type() == t {
			res = append(res, e)
		}
	}
	return res
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Publisher is a Sink that publishes encoded events to a watermill
// publisher.
type Publisher struct {
	pub   message.Publisher
	topic string
}

var _ Sink = (*Publisher)(nil)

// NewPublisher returns a Sink publishing to topic. An empty topic selects
// DefaultTopic.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{pub: pub, topic: topic}
}

// Emit implements Sink. All events are published in a single call.
func (p *Publisher) Emit(ctx context.Context, events ...Event) error {
	msgs := make([]*message.Message, len(events))
	for i, e := range events {
		payload, err := Encode(e)
		if err != nil {
			return err
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(MetadataType, e.Type().String())
		msg.SetContext(ctx)
		msgs[i] = msg
	}
	return errors.WithMessage(p.pub.Publish(p.topic, msgs...), "publishing events")
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// LoggerAdapter lets watermill components log through a go-perun logger.
type LoggerAdapter struct {
	log log.Logger
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

// NewLoggerAdapter wraps l.
func NewLoggerAdapter(l log.Logger) *LoggerAdapter {
	return &LoggerAdapter{log: l}
}

func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.WithFields(log.Fields(fields)).WithError(err).Error(msg)
}

func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.WithFields(log.Fields(fields)).Info(msg)
}

func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.WithFields(log.Fields(fields)).Debug(msg)
}

func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.WithFields(log.Fields(fields)).Trace(msg)
}

func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{log: a.log.WithFields(log.Fields(fields))}
}

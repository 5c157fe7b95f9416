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

package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"perun.network/go-perun/log"

	"github.com/statechannels/nitro-protocol/channel"
	"github.com/statechannels/nitro-protocol/channel/types"
	"github.com/statechannels/nitro-protocol/wallet"
)

// Client submits adjudicator operations on behalf of one participant.
type Client struct {
	adj *channel.Adjudicator
	acc *wallet.Account
	log log.Embedding
}

// New returns a client that signs with acc.
func New(adj *channel.Adjudicator, acc *wallet.Account) *Client {
	return &Client{
		adj: adj,
		acc: acc,
		log: log.MakeEmbedding(log.Default().WithField("participant", acc.Address().Hex())),
	}
}

// Address returns the address of the client's account.
func (c *Client) Address() common.Address {
	return c.acc.Address()
}

// SignState signs state with the client's account.
func (c *Client) SignState(state types.State) (wallet.Signature, error) {
	return channel.Backend.Sign(c.acc, state)
}

// Challenge registers a challenge with the last of states, signed by the
// client.
func (c *Client) Challenge(ctx context.Context, turnNumRecord uint64, states []types.State, sigs []wallet.Signature) error {
	wsw, err := WhoSignedWhat(states, sigs)
	if err != nil {
		return err
	}
	last := states[len(states)-1]
	challengerSig, err := channel.Backend.SignChallenge(c.acc, last.TurnNum, last.ChannelID())
	if err != nil {
		return errors.WithMessage(err, "signing challenge")
	}
	p, err := ForceMove(turnNumRecord, states, sigs, wsw, challengerSig)
	if err != nil {
		return err
	}
	c.log.Log().WithField("channel", last.ChannelID()).WithField("turnNum", last.TurnNum).Debug("Challenging")
	return c.adj.ForceMove(ctx, p)
}

// Respond answers the challenge on challengeState with response, which the
// client signs.
func (c *Client) Respond(ctx context.Context, challengeState types.State, finalizesAt uint64, challenger common.Address, response types.State) error {
	sig, err := c.SignState(response)
	if err != nil {
		return err
	}
	p, err := Respond(challengeState, finalizesAt, challenger, response, sig)
	if err != nil {
		return err
	}
	c.log.Log().WithField("channel", response.ChannelID()).WithField("turnNum", response.TurnNum).Debug("Responding")
	return c.adj.Respond(ctx, p)
}

// Refute clears the challenge on challengeState with a later state signed
// by the challenger.
func (c *Client) Refute(ctx context.Context, challengeState types.State, finalizesAt uint64, challenger common.Address, refutation types.State, sig wallet.Signature) error {
	p, err := Refute(challengeState, finalizesAt, challenger, refutation, sig)
	if err != nil {
		return err
	}
	c.log.Log().WithField("channel", refutation.ChannelID()).WithField("turnNum", refutation.TurnNum).Debug("Refuting")
	return c.adj.Refute(ctx, p)
}

// Checkpoint records the last of states, replacing current.
func (c *Client) Checkpoint(ctx context.Context, current types.ChannelStorage, states []types.State, sigs []wallet.Signature) error {
	wsw, err := WhoSignedWhat(states, sigs)
	if err != nil {
		return err
	}
	p, err := Checkpoint(current, states, sigs, wsw)
	if err != nil {
		return err
	}
	return c.adj.Checkpoint(ctx, p)
}

// Conclude finalizes the channel with final states. A zero challenge
// concludes from the open channel at turnNumRecord.
func (c *Client) Conclude(ctx context.Context, turnNumRecord uint64, challenge types.ChannelStorage, states []types.State, sigs []wallet.Signature) error {
	wsw, err := WhoSignedWhat(states, sigs)
	if err != nil {
		return err
	}
	if challenge.IsOpen() {
		p, err := ConcludeFromOpen(turnNumRecord, states, sigs, wsw)
		if err != nil {
			return err
		}
		return c.adj.ConcludeFromOpen(ctx, p)
	}
	p, err := ConcludeFromChallenge(challenge, states, sigs, wsw)
	if err != nil {
		return err
	}
	return c.adj.ConcludeFromChallenge(ctx, p)
}
